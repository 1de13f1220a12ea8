package auth

import (
	"errors"
	"time"
)

// ErrInvalidCredentials indicates login failure. The same error is returned
// for unknown accounts, wrong passwords and deactivated users so responses do
// not leak which one applied.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	KYCVerified  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
