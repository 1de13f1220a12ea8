package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkside-realty/parkside/internal/authz"
	"github.com/parkside-realty/parkside/internal/session"
	_ "github.com/parkside-realty/parkside/testing"
)

func newTestManager(t *testing.T) (*session.Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return session.NewManager(client, "test_session", "secret", time.Hour, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)

	sess.SetUser("42")
	sess.SetRoles([]authz.Role{authz.RoleOwner, authz.RoleInvestor})
	sess.SetKYCVerified(true)
	sess.Set("theme", "dark")

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test_session", cookies[0].Name)

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(&http.Cookie{Name: manager.CookieName(), Value: sess.ID})
	loaded, err := manager.Load(ctx, again)
	require.NoError(t, err)

	assert.Equal(t, "42", loaded.User())
	assert.Equal(t, []authz.Role{authz.RoleOwner, authz.RoleInvestor}, loaded.Roles())
	assert.True(t, loaded.KYCVerified())
	assert.Equal(t, "dark", loaded.Get("theme"))
}

func TestSessionDestroy(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("7")

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))

	manager.Destroy(sess)
	res = httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(&http.Cookie{Name: manager.CookieName(), Value: sess.ID})
	loaded, err := manager.Load(ctx, again)
	require.NoError(t, err)
	assert.Empty(t, loaded.User())
}

func TestStaleMarker(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	stale, err := manager.IsStale(ctx, "42")
	require.NoError(t, err)
	assert.False(t, stale)

	require.NoError(t, manager.MarkStale(ctx, "42"))
	stale, err = manager.IsStale(ctx, "42")
	require.NoError(t, err)
	assert.True(t, stale)

	require.NoError(t, manager.ClearStale(ctx, "42"))
	stale, err = manager.IsStale(ctx, "42")
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestSubjectUnauthenticated(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)

	subject := manager.Subject(ctx, sess)
	assert.False(t, subject.Authenticated)
	assert.False(t, subject.Loading)
	assert.Empty(t, subject.Roles)
}

func TestSubjectAuthenticated(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("42")
	sess.SetRoles([]authz.Role{authz.RoleTenant})
	sess.SetKYCVerified(true)

	subject := manager.Subject(ctx, sess)
	assert.True(t, subject.Authenticated)
	assert.Equal(t, "42", subject.UserID)
	assert.Equal(t, []authz.Role{authz.RoleTenant}, subject.Roles)
	assert.True(t, subject.KYCVerified)
	assert.False(t, subject.Loading)
}

func TestSubjectLoadingWhileStale(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("42")
	sess.SetRoles([]authz.Role{authz.RoleTenant})

	require.NoError(t, manager.MarkStale(ctx, "42"))
	subject := manager.Subject(ctx, sess)
	assert.True(t, subject.Loading)

	require.NoError(t, manager.ClearStale(ctx, "42"))
	subject = manager.Subject(ctx, sess)
	assert.False(t, subject.Loading)
}

func TestSubjectLoadingOnRedisFailure(t *testing.T) {
	manager, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("42")

	mr.Close()
	subject := manager.Subject(ctx, sess)
	assert.True(t, subject.Loading)
}

func TestCSRFTokenVerification(t *testing.T) {
	manager, _ := newTestManager(t)
	csrf := session.NewCSRFManager("csrfsecret")
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)

	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// stable across calls
	same, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, same)

	require.NoError(t, csrf.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), session.ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, "bogus"), session.ErrCSRFTokenMismatch)
}
