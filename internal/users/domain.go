package users

import (
	"time"

	"github.com/parkside-realty/parkside/internal/authz"
)

// User represents a user account for management.
type User struct {
	ID          int64
	Email       string
	Name        string
	IsActive    bool
	KYCVerified bool
	Roles       []authz.Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
