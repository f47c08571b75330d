package types

import "time"

// UserStatus describes whether an account may authenticate.
type UserStatus string

const (
	// StatusActive is the default state of a freshly registered account.
	StatusActive UserStatus = "Active"

	// StatusInactive marks an account its owner has deactivated.
	StatusInactive UserStatus = "Inactive"

	// StatusBanned marks an account locked out by an administrator.
	StatusBanned UserStatus = "Banned"
)

// User represents an account in the system.
type User struct {
	// ID is the opaque unique identifier of the user, assigned on creation.
	ID string `json:"id" db:"id"`

	// Email is the unique, lowercased address the user signs in with.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Status gates authentication; see UserStatus.
	Status UserStatus `json:"status" db:"status"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
