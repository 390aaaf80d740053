// services/wallet_service.go
package services

import (
	"context"
	"fmt"

	"identity-sync-service/models"

	"gorm.io/gorm"
)

type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// ListWallets returns the wallets mirrored for did, oldest first. A user
// that never synced has no wallets.
func (s *WalletService) ListWallets(ctx context.Context, did string) ([]models.Wallet, error) {
	wallets := []models.Wallet{}
	if err := s.DB.WithContext(ctx).
		Where("user_did = ?", did).
		Order("created_at ASC").
		Order("address ASC").
		Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return wallets, nil
}

func (s *WalletService) CountWallets(ctx context.Context, did string) (int64, error) {
	var count int64
	if err := s.DB.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_did = ?", did).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count wallets: %w", err)
	}
	return count, nil
}

// MirrorCounts returns the total number of mirrored users and wallets.
func (s *WalletService) MirrorCounts(ctx context.Context) (users int64, wallets int64, err error) {
	db := s.DB.WithContext(ctx)
	if err = db.Model(&models.User{}).Count(&users).Error; err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	if err = db.Model(&models.Wallet{}).Count(&wallets).Error; err != nil {
		return 0, 0, fmt.Errorf("count wallets: %w", err)
	}
	return users, wallets, nil
}
