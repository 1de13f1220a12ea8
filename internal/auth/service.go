package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/parkside-realty/parkside/internal/authz"
)

// Snapshot is the authorization-relevant view of a user account, produced at
// login and refresh and pushed into the session.
type Snapshot struct {
	User  *User
	Roles []authz.Role
}

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials and returns the user
// snapshot on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Snapshot, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	roles, err := s.repo.RolesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{User: user, Roles: roles}, nil
}

// Reload re-reads a user's snapshot, used by the refresh flow after role
// assignments change mid-session.
func (s *Service) Reload(ctx context.Context, userID int64) (*Snapshot, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles, err := s.repo.RolesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{User: user, Roles: roles}, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
