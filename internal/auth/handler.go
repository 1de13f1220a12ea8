package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parkside-realty/parkside/internal/platform/httpx"
	"github.com/parkside-realty/parkside/internal/session"
)

// Handler serves the login/refresh/logout flow. It is the only writer of
// session authorization state.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *session.Manager
	csrf      *session.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *session.Manager, csrf *session.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes attaches auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Post("/refresh", h.refresh)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionResponse struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	KYCVerified bool     `json:"kyc_verified"`
	CSRFToken   string   `json:"csrf_token,omitempty"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "email and password are required")
		return
	}

	snap, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Credentials", "email or password is incorrect")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess := session.FromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	userID := strconv.FormatInt(snap.User.ID, 10)
	sess.SetUser(userID)
	sess.SetRoles(snap.Roles)
	sess.SetKYCVerified(snap.User.KYCVerified)

	token, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("csrf token", slog.Any("error", err))
	}

	expiresAt := time.Now().Add(h.sessions.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, snap.User.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	if err := h.sessions.ClearStale(r.Context(), userID); err != nil {
		h.logger.Warn("clear stale flag", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, h.sessionResponse(sess, snap, token))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}
	if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}
	h.sessions.Destroy(sess)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// refresh reloads the caller's roles and verification flags from the source
// of record and clears the stale marker, moving their sessions out of the
// loading state.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		h.logger.Error("refresh parse user id", slog.String("value", sess.User()))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	snap, err := h.service.Reload(r.Context(), userID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			// Account removed or deactivated server-side: force sign-out.
			h.sessions.Destroy(sess)
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session no longer valid")
			return
		}
		h.logger.Error("refresh", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !snap.User.IsActive {
		h.sessions.Destroy(sess)
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session no longer valid")
		return
	}

	sess.SetRoles(snap.Roles)
	sess.SetKYCVerified(snap.User.KYCVerified)
	if err := h.sessions.ClearStale(r.Context(), sess.User()); err != nil {
		h.logger.Warn("clear stale flag", slog.Any("error", err))
	}

	httpx.JSON(w, http.StatusOK, h.sessionResponse(sess, snap, ""))
}

func (h *Handler) sessionResponse(sess *session.Session, snap *Snapshot, csrfToken string) sessionResponse {
	roles := make([]string, len(snap.Roles))
	for i, role := range snap.Roles {
		roles[i] = string(role)
	}
	return sessionResponse{
		UserID:      sess.User(),
		Name:        snap.User.Name,
		Roles:       roles,
		KYCVerified: snap.User.KYCVerified,
		CSRFToken:   csrfToken,
	}
}
