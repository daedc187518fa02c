// Package domain contains core domain types for the Tabula application.
package domain

import (
	"time"
)

// User is an anonymous device identity and the wallet it last connected.
type User struct {
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasWallet returns true if the user has connected a wallet.
func (u *User) HasWallet() bool {
	return u.WalletAddress != ""
}
