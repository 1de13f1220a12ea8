// Package session holds per-user authentication state: who is signed in,
// which roles they hold, and whether their snapshot is being refreshed. The
// rest of the system treats this state as read-only input; only the
// login/refresh/logout flow mutates it.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/parkside-realty/parkside/internal/authz"
)

// CSRF and staleness errors.
var (
	ErrCSRFTokenMissing  = errors.New("csrf token missing")
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// Manager orchestrates cookie based sessions backed by Redis. A session's
// payload is written with a single SET, so concurrent readers always observe
// a complete snapshot, never a partial update.
type Manager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session holds per-request session data. It is an immutable snapshot from
// the reader's point of view; mutations accumulate locally until Commit.
type Session struct {
	ID          string
	values      map[string]string
	userID      string
	roles       []string
	kycVerified bool
	isNew       bool
	dirty       bool
	destroyed   bool
}

type sessionPayload struct {
	Values      map[string]string `json:"values"`
	UserID      string            `json:"user_id"`
	Roles       []string          `json:"roles"`
	KYCVerified bool              `json:"kyc_verified"`
}

// NewManager constructs a Manager.
func NewManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load loads or creates a session for the request.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return m.newSession(), nil
		}
		return nil, err
	}

	payload, err := m.client.Get(ctx, m.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			sess := m.newSession()
			sess.ID = cookie.Value
			return sess, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := m.newSession()
	sess.ID = cookie.Value
	sess.values = stored.Values
	sess.userID = stored.UserID
	sess.roles = stored.Roles
	sess.kycVerified = stored.KYCVerified
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (m *Manager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := m.client.Del(ctx, m.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.isNew && sess.ID == "" {
		sess.ID = m.generateSessionID()
	}

	if sess.dirty || sess.isNew {
		payload := sessionPayload{
			Values:      sess.values,
			UserID:      sess.userID,
			Roles:       sess.roles,
			KYCVerified: sess.kycVerified,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if err := m.client.Set(ctx, m.redisKey(sess.ID), data, m.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
	}

	if sess.ID != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteStrictMode,
			Expires:  time.Now().Add(m.ttl),
		})
	}

	return nil
}

// Destroy marks the session for deletion.
func (m *Manager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// TTL exposes the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// MarkStale flags every session of the given user as needing a role resync.
// Until the user completes /auth/refresh, gate evaluations for them report
// Pending rather than deciding on a possibly outdated role set.
func (m *Manager) MarkStale(ctx context.Context, userID string) error {
	return m.client.Set(ctx, m.staleKey(userID), "1", m.ttl).Err()
}

// ClearStale removes the resync flag after a completed refresh.
func (m *Manager) ClearStale(ctx context.Context, userID string) error {
	err := m.client.Del(ctx, m.staleKey(userID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// IsStale reports whether the user's sessions await a role resync.
func (m *Manager) IsStale(ctx context.Context, userID string) (bool, error) {
	_, err := m.client.Get(ctx, m.staleKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Subject builds the authorization snapshot the gate consumes. A session
// whose user is flagged stale is reported as loading; a redis failure during
// the staleness check also degrades to loading rather than deciding on
// unverifiable state.
func (m *Manager) Subject(ctx context.Context, sess *Session) authz.Subject {
	if sess == nil || sess.userID == "" {
		return authz.Subject{}
	}
	stale, err := m.IsStale(ctx, sess.userID)
	if err != nil {
		stale = true
	}
	return authz.Subject{
		UserID:        sess.userID,
		Roles:         sess.Roles(),
		Authenticated: true,
		Loading:       stale,
		KYCVerified:   sess.kycVerified,
	}
}

// Session helpers

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with a user ID.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the current user ID, empty when unauthenticated.
func (s *Session) User() string {
	return s.userID
}

// SetRoles replaces the session's role set.
func (s *Session) SetRoles(roles []authz.Role) {
	s.roles = make([]string, len(roles))
	for i, role := range roles {
		s.roles[i] = string(role)
	}
	s.dirty = true
}

// Roles returns the session's role set.
func (s *Session) Roles() []authz.Role {
	roles := make([]authz.Role, len(s.roles))
	for i, role := range s.roles {
		roles[i] = authz.Role(role)
	}
	return roles
}

// SetKYCVerified records the identity verification flag.
func (s *Session) SetKYCVerified(verified bool) {
	s.kycVerified = verified
	s.dirty = true
}

// KYCVerified reports the identity verification flag.
func (s *Session) KYCVerified() bool {
	return s.kycVerified
}

func (m *Manager) newSession() *Session {
	return &Session{
		ID:     m.generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (m *Manager) redisKey(id string) string {
	return "session:" + id
}

func (m *Manager) staleKey(userID string) string {
	return "session-stale:" + userID
}

func (m *Manager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	if len(m.secret) > 0 {
		for i := range b {
			b[i] ^= m.secret[i%len(m.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
