package models

import (
	"time"
)

// User is the local mirror of an identity provider account.
// Keyed by the provider DID and only ever written by an identity sync.
// The X* fields hold the linked X (Twitter) account, if any.
type User struct {
	DID                string    `gorm:"primaryKey;column:did;type:varchar(255)" json:"did"`
	XSubject           *string   `gorm:"column:x_subject" json:"x_subject,omitempty"`
	XUsername          *string   `gorm:"column:x_username" json:"x_username,omitempty"`
	XName              *string   `gorm:"column:x_name" json:"x_name,omitempty"`
	XProfilePictureURL *string   `gorm:"column:x_profile_picture_url" json:"x_profile_picture_url,omitempty"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null" json:"updated_at"`

	Wallets []Wallet `gorm:"foreignKey:UserDID;references:DID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
