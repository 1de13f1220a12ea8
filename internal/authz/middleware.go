package authz

import (
	"log/slog"
	"net/http"

	"github.com/parkside-realty/parkside/internal/platform/httpx"
)

// DecisionRecorder receives the outcome of each gate evaluation, typically
// for metrics.
type DecisionRecorder interface {
	RecordDecision(outcome Outcome, reason Reason)
}

// Middleware wires gate authorization helpers for HTTP handlers. The subject
// is read from the request context, where the session middleware placed it.
type Middleware struct {
	Gate     *Gate
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// Require guards a route with an arbitrary requirement.
func (m Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFromContext(r.Context())
			decision := m.Gate.Evaluate(subject, req)
			if m.Recorder != nil {
				m.Recorder.RecordDecision(decision.Outcome, decision.Reason)
			}
			switch {
			case decision.Allowed():
				next.ServeHTTP(w, r)
			case decision.Pending():
				// Session refresh in flight; the client retries after
				// completing /auth/refresh.
				w.Header().Set("Retry-After", "1")
				httpx.Problem(w, http.StatusServiceUnavailable, "Session Refreshing", "Session state is refreshing; retry shortly.")
			default:
				m.deny(w, r, decision)
			}
		})
	}
}

// RequireAuth guards a route behind authentication only.
func (m Middleware) RequireAuth() func(http.Handler) http.Handler {
	return m.Require(Requirement{Authentication: true})
}

// RequireAdmin guards a route behind authentication and admin privilege.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.Require(Requirement{Authentication: true, Admin: true})
}

// RequirePermissions guards a route behind all of the given permissions.
func (m Middleware) RequirePermissions(perms ...Permission) func(http.Handler) http.Handler {
	return m.Require(Requirement{Authentication: true, AllPermissions: perms})
}

// RequireAnyRole guards a route behind membership of at least one role.
func (m Middleware) RequireAnyRole(roles ...Role) func(http.Handler) http.Handler {
	return m.Require(Requirement{Authentication: true, AnyRoles: roles})
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, decision Decision) {
	if m.Logger != nil {
		m.Logger.Warn("access denied",
			slog.String("path", r.URL.Path),
			slog.String("reason", string(decision.Reason)))
	}
	status := http.StatusForbidden
	if decision.Reason == ReasonNotAuthenticated {
		status = http.StatusUnauthorized
	}
	httpx.Problem(w, status, string(decision.Reason), decision.Reason.Message())
}
