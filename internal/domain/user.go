package domain

import "time"

// Account is an authenticated identity. ID is the uid every profile is keyed by.
type Account struct {
	ID           string    `db:"id" json:"uid"`
	Email        string    `db:"email" json:"email,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Provider     string    `db:"provider" json:"provider"`
	Subject      string    `db:"subject" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Identity providers
const (
	ProviderPassword = "password"
	ProviderTelegram = "telegram"
)
