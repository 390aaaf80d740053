// models/wallet.go
package models

import (
	"time"
)

// Wallet mirrors one wallet address linked to a user at the identity provider.
// Table name: wallets
// The same address may belong to several users; (user_did, address) is unique.
type Wallet struct {
	ID               string    `gorm:"primaryKey;type:uuid;not null" json:"-"`
	UserDID          string    `gorm:"column:user_did;type:varchar(255);not null;index;uniqueIndex:uq_user_wallet,priority:1" json:"-"`
	Address          string    `gorm:"type:varchar(255);not null;index;uniqueIndex:uq_user_wallet,priority:2" json:"address"`
	ChainType        *string   `gorm:"type:varchar(64)" json:"chain_type"`
	WalletClientType *string   `gorm:"type:varchar(64)" json:"wallet_client_type"`
	ConnectorType    *string   `gorm:"type:varchar(64)" json:"connector_type"`
	CreatedAt        time.Time `gorm:"not null" json:"-"`
}
