package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parkside-realty/parkside/internal/authz"
	"github.com/parkside-realty/parkside/internal/platform/httpx"
	"github.com/parkside-realty/parkside/internal/session"
)

// Handler serves user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *authz.Resolver
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs the users HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *authz.Resolver, guard authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		resolver:  resolver,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes attaches user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireAuth()).Get("/me", h.me)
	r.With(h.guard.RequirePermissions(authz.PermUserManage)).Get("/", h.list)
	r.With(h.guard.RequirePermissions(authz.PermRoleManage)).Post("/{id}/roles", h.assignRole)
	r.With(h.guard.RequirePermissions(authz.PermRoleManage)).Delete("/{id}/roles/{role}", h.removeRole)
}

type meResponse struct {
	UserID         string   `json:"user_id"`
	Roles          []string `json:"roles"`
	EffectiveRoles []string `json:"effective_roles"`
	Permissions    []string `json:"permissions"`
	IsAdmin        bool     `json:"is_admin"`
	KYCVerified    bool     `json:"kyc_verified"`
}

// me reports the caller's effective authorization state: assigned roles,
// hierarchy-expanded roles, and the derived permission set.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}
	roles := sess.Roles()
	effective := h.resolver.EffectiveRoles(roles)
	perms := h.resolver.Permissions(roles)

	resp := meResponse{
		UserID:         sess.User(),
		Roles:          rolesToStrings(roles),
		EffectiveRoles: rolesToStrings(effective),
		Permissions:    make([]string, len(perms)),
		IsAdmin:        h.resolver.IsAdmin(roles),
		KYCVerified:    sess.KYCVerified(),
	}
	for i, perm := range perms {
		resp.Permissions[i] = string(perm)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type userItem struct {
		ID          int64  `json:"id"`
		Email       string `json:"email"`
		Name        string `json:"name"`
		IsActive    bool   `json:"is_active"`
		KYCVerified bool   `json:"kyc_verified"`
	}
	items := make([]userItem, len(users))
	for i, u := range users {
		items[i] = userItem{ID: u.ID, Email: u.Email, Name: u.Name, IsActive: u.IsActive, KYCVerified: u.KYCVerified}
	}
	httpx.JSON(w, http.StatusOK, items)
}

type assignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "user id must be numeric")
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "role is required")
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, authz.Role(req.Role)); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "role assigned"})
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "user id must be numeric")
		return
	}
	role := authz.Role(chi.URLParam(r, "role"))
	if err := h.service.RemoveRole(r.Context(), userID, role); err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "role removed"})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnknownRole) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	h.logger.Error("user role change", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func rolesToStrings(roles []authz.Role) []string {
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}
