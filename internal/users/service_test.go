package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkside-realty/parkside/internal/authz"
	"github.com/parkside-realty/parkside/internal/platform/httpx"
)

type memoryUserRepo struct {
	users map[int64]*User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]*User)}
}

func (r *memoryUserRepo) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memoryUserRepo) GetUser(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memoryUserRepo) AssignRole(ctx context.Context, userID int64, role authz.Role) error {
	u, ok := r.users[userID]
	if !ok {
		return httpx.ErrNotFound
	}
	for _, existing := range u.Roles {
		if existing == role {
			return nil
		}
	}
	u.Roles = append(u.Roles, role)
	return nil
}

func (r *memoryUserRepo) RemoveRole(ctx context.Context, userID int64, role authz.Role) error {
	u, ok := r.users[userID]
	if !ok {
		return httpx.ErrNotFound
	}
	kept := u.Roles[:0]
	for _, existing := range u.Roles {
		if existing != role {
			kept = append(kept, existing)
		}
	}
	u.Roles = kept
	return nil
}

type stubStaleMarker struct {
	marked []string
}

func (s *stubStaleMarker) MarkStale(ctx context.Context, userID string) error {
	s.marked = append(s.marked, userID)
	return nil
}

func TestAssignRoleMarksSessionsStale(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.users[7] = &User{ID: 7, Email: "t@parkside.test"}
	stale := &stubStaleMarker{}
	svc := NewService(repo, authz.DefaultCatalog(), stale)

	require.NoError(t, svc.AssignRole(context.Background(), 7, authz.RoleInvestor))

	u, err := repo.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []authz.Role{authz.RoleInvestor}, u.Roles)
	assert.Equal(t, []string{"7"}, stale.marked)
}

func TestAssignRoleRejectsUnknownRole(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.users[7] = &User{ID: 7}
	stale := &stubStaleMarker{}
	svc := NewService(repo, authz.DefaultCatalog(), stale)

	err := svc.AssignRole(context.Background(), 7, authz.Role("landlord"))
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.Empty(t, stale.marked)
}

func TestAssignRoleUnknownUser(t *testing.T) {
	stale := &stubStaleMarker{}
	svc := NewService(newMemoryUserRepo(), authz.DefaultCatalog(), stale)

	err := svc.AssignRole(context.Background(), 99, authz.RoleOwner)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Empty(t, stale.marked)
}

func TestRemoveRoleMarksSessionsStale(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.users[7] = &User{ID: 7, Roles: []authz.Role{authz.RoleOwner, authz.RoleInvestor}}
	stale := &stubStaleMarker{}
	svc := NewService(repo, authz.DefaultCatalog(), stale)

	require.NoError(t, svc.RemoveRole(context.Background(), 7, authz.RoleOwner))

	u, err := repo.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []authz.Role{authz.RoleInvestor}, u.Roles)
	assert.Equal(t, []string{"7"}, stale.marked)
}
