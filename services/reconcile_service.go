// services/reconcile_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"identity-sync-service/logger"
	"identity-sync-service/metrics"
	"identity-sync-service/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncResult is returned to the client after a successful identity sync.
type SyncResult struct {
	DID         string  `json:"did"`
	XUsername   *string `json:"x_username"`
	WalletCount int64   `json:"wallet_count"`
}

// IdentityService mirrors identity token snapshots into the users and
// wallets tables.
type IdentityService struct {
	DB       *gorm.DB
	Wallets  *WalletService
	Archiver SnapshotArchiver
}

func NewIdentityService(db *gorm.DB, archiver SnapshotArchiver) *IdentityService {
	if archiver == nil {
		archiver = NoopArchiver{}
	}
	return &IdentityService{
		DB:       db,
		Wallets:  NewWalletService(db),
		Archiver: archiver,
	}
}

var walletTagColumns = []string{"chain_type", "wallet_client_type", "connector_type"}

// SyncIdentity reconciles the snapshot and then archives it. Archive
// failures are logged and never fail the sync.
func (s *IdentityService) SyncIdentity(ctx context.Context, snapshot *IdentitySnapshot) (*SyncResult, error) {
	result, err := s.Reconcile(ctx, snapshot.Subject, snapshot.LinkedAccounts)
	if err != nil {
		return nil, err
	}

	record := SnapshotRecord{
		DID:            snapshot.Subject,
		LinkedAccounts: snapshot.LinkedAccounts,
		CustomMetadata: snapshot.CustomMetadata,
		WalletCount:    result.WalletCount,
		SyncedAt:       time.Now().UTC(),
	}
	if err := s.Archiver.Archive(ctx, record); err != nil {
		didLog := logger.WithDID(log.Logger, snapshot.Subject)
		didLog.Warn().Err(err).Msg("[ARCHIVE] failed to archive identity snapshot")
	}

	return result, nil
}

// Reconcile upserts the user and its wallets from the linked accounts in one
// transaction. It is idempotent, never deletes wallets, and never replaces a
// stored wallet tag with an empty value.
func (s *IdentityService) Reconcile(ctx context.Context, did string, accounts []LinkedAccount) (*SyncResult, error) {
	start := time.Now()
	if did == "" {
		return nil, &MalformedPayloadError{Field: "sub", Cause: errors.New("subject is empty")}
	}

	user := models.User{DID: did}
	userUpdates := []string{"updated_at"}
	if x := firstAccountOfType(accounts, AccountTypeTwitterOAuth); x != nil {
		// The linked X account replaces all four fields, absent ones become NULL.
		user.XSubject = x.OptString("subject")
		user.XUsername = x.OptString("username")
		user.XName = x.OptString("name")
		user.XProfilePictureURL = x.OptString("profilePictureUrl")
		userUpdates = append(userUpdates, "x_subject", "x_username", "x_name", "x_profile_picture_url")
	}

	wallets := collectWallets(did, accounts)
	didLog := logger.WithDID(log.Logger, did)

	result := &SyncResult{DID: did}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "did"}},
			DoUpdates: clause.AssignmentColumns(userUpdates),
		}).Omit(clause.Associations).Create(&user).Error; err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}

		if len(wallets) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_did"}, {Name: "address"}},
				DoUpdates: keepNonEmpty(walletTagColumns...),
			}).Create(&wallets).Error; err != nil {
				return fmt.Errorf("upsert wallets: %w", err)
			}
		}

		var stored models.User
		if err := tx.Select("did", "x_username").Where("did = ?", did).First(&stored).Error; err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
		result.XUsername = stored.XUsername
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
			metrics.RecordReconciliation("conflict", time.Since(start).Seconds())
			didLog.Warn().Err(err).Msg("[SYNC] storage conflict, client may retry")
			return nil, &StorageConflictError{DID: did, Cause: err}
		}
		metrics.RecordReconciliation("failed", time.Since(start).Seconds())
		didLog.Error().Err(err).Msg("[SYNC] reconcile failed")
		return nil, err
	}

	count, err := s.Wallets.CountWallets(ctx, did)
	if err != nil {
		metrics.RecordReconciliation("failed", time.Since(start).Seconds())
		return nil, err
	}
	result.WalletCount = count

	metrics.RecordReconciliation("success", time.Since(start).Seconds())
	didLog.Info().
		Int("snapshot_wallets", len(wallets)).
		Int64("wallet_count", count).
		Msg("[SYNC] identity reconciled")

	return result, nil
}

func firstAccountOfType(accounts []LinkedAccount, accountType string) LinkedAccount {
	for _, acct := range accounts {
		if acct.Type() == accountType {
			return acct
		}
	}
	return nil
}

// collectWallets keeps wallet and smart_wallet accounts with an address.
// When an address repeats, the last entry wins but keeps the position of the
// first one.
func collectWallets(did string, accounts []LinkedAccount) []models.Wallet {
	var wallets []models.Wallet
	index := make(map[string]int)

	for _, acct := range accounts {
		if !acct.IsWallet() {
			continue
		}
		address := acct.String("address")
		if address == "" {
			continue
		}

		w := models.Wallet{
			ID:               uuid.NewString(),
			UserDID:          did,
			Address:          address,
			ChainType:        acct.OptString("chain_type"),
			WalletClientType: acct.OptString("wallet_client_type"),
			ConnectorType:    acct.OptString("connector_type"),
		}

		if i, seen := index[address]; seen {
			w.ID = wallets[i].ID
			wallets[i] = w
			continue
		}
		index[address] = len(wallets)
		wallets = append(wallets, w)
	}

	return wallets
}

// keepNonEmpty builds ON CONFLICT assignments that take the incoming value
// only when it is a non-empty string.
func keepNonEmpty(columns ...string) clause.Set {
	set := make(clause.Set, 0, len(columns))
	for _, col := range columns {
		set = append(set, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr(fmt.Sprintf("COALESCE(NULLIF(excluded.%s, ''), wallets.%s)", col, col)),
		})
	}
	return set
}
