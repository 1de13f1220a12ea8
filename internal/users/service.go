package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/parkside-realty/parkside/internal/authz"
)

// ErrUnknownRole rejects assignment of a role the catalog does not know.
var ErrUnknownRole = errors.New("users: unknown role")

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	AssignRole(ctx context.Context, userID int64, role authz.Role) error
	RemoveRole(ctx context.Context, userID int64, role authz.Role) error
}

// StaleMarker flags a user's sessions for role resync after an assignment
// change.
type StaleMarker interface {
	MarkStale(ctx context.Context, userID string) error
}

// Service handles user management business logic.
type Service struct {
	repo    RepositoryPort
	catalog *authz.Catalog
	stale   StaleMarker
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, catalog *authz.Catalog, stale StaleMarker) *Service {
	return &Service{repo: repo, catalog: catalog, stale: stale}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns a user with assigned roles.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// AssignRole grants a role and flags the user's sessions as stale so that
// their next gate evaluation waits on a refresh instead of using the old
// role set.
func (s *Service) AssignRole(ctx context.Context, userID int64, role authz.Role) error {
	if !s.catalog.Knows(role) {
		return ErrUnknownRole
	}
	if err := s.repo.AssignRole(ctx, userID, role); err != nil {
		return err
	}
	return s.stale.MarkStale(ctx, strconv.FormatInt(userID, 10))
}

// RemoveRole revokes a role and flags the user's sessions as stale.
func (s *Service) RemoveRole(ctx context.Context, userID int64, role authz.Role) error {
	if !s.catalog.Knows(role) {
		return ErrUnknownRole
	}
	if err := s.repo.RemoveRole(ctx, userID, role); err != nil {
		return err
	}
	return s.stale.MarkStale(ctx, strconv.FormatInt(userID, 10))
}
