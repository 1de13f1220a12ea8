package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/parkside-realty/parkside/internal/platform/httpx"
)

// Handler exposes the authorization engine over HTTP: decision checks for UI
// conditionals, approver chain lookups, and SLA queries.
type Handler struct {
	logger    *slog.Logger
	gate      *Gate
	chains    *ApprovalChains
	sla       *SLAPolicy
	recorder  DecisionRecorder
	validator *validator.Validate
	lookups   singleflight.Group
	now       func() time.Time
}

// NewHandler constructs the authz HTTP handler.
func NewHandler(logger *slog.Logger, gate *Gate, chains *ApprovalChains, sla *SLAPolicy, recorder DecisionRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		gate:      gate,
		chains:    chains,
		sla:       sla,
		recorder:  recorder,
		validator: validator.New(),
		now:       time.Now,
	}
}

// MountRoutes attaches authz routes. All routes assume the session middleware
// has already placed the subject in context.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
	r.Get("/approvers/{category}", h.approvers)
	r.Get("/sla/{role}/{priority}", h.slaLookup)
}

type checkRequest struct {
	Authentication bool     `json:"authentication"`
	AllRoles       []string `json:"all_roles" validate:"dive,required"`
	AnyRoles       []string `json:"any_roles" validate:"dive,required"`
	Permission     string   `json:"permission"`
	AnyPermissions []string `json:"any_permissions" validate:"dive,required"`
	AllPermissions []string `json:"all_permissions" validate:"dive,required"`
	KYC            bool     `json:"kyc"`
	Admin          bool     `json:"admin"`
}

type checkResponse struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	requirement := Requirement{
		Authentication: req.Authentication,
		AllRoles:       toRoles(req.AllRoles),
		AnyRoles:       toRoles(req.AnyRoles),
		Permission:     Permission(req.Permission),
		AnyPermissions: toPermissions(req.AnyPermissions),
		AllPermissions: toPermissions(req.AllPermissions),
		KYC:            req.KYC,
		Admin:          req.Admin,
	}

	decision := h.gate.Evaluate(SubjectFromContext(r.Context()), requirement)
	if h.recorder != nil {
		h.recorder.RecordDecision(decision.Outcome, decision.Reason)
	}

	resp := checkResponse{Outcome: string(decision.Outcome)}
	if decision.Denied() {
		resp.Reason = string(decision.Reason)
		resp.Message = decision.Reason.Message()
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type approversResponse struct {
	Category  string   `json:"category"`
	Approvers []string `json:"approvers"`
}

func (h *Handler) approvers(w http.ResponseWriter, r *http.Request) {
	category := ActionCategory(chi.URLParam(r, "category"))
	ctx := ApprovalContext{
		PropertyType: PropertyType(r.URL.Query().Get("property_type")),
	}
	if raw := r.URL.Query().Get("amount_cents"); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || amount < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "amount_cents must be a non-negative integer")
			return
		}
		ctx.AmountCents = amount
	}

	key := string(category) + "|" + strconv.FormatInt(ctx.AmountCents, 10) + "|" + string(ctx.PropertyType)
	result, err, _ := h.lookups.Do(key, func() (any, error) {
		return h.chains.ApproversFor(category, ctx)
	})
	if err != nil {
		var noApprover *NoApproverError
		if errors.As(err, &noApprover) {
			// Deployment bug, not a deny: surface loudly for operators.
			h.logger.Error("approver lookup miss", slog.String("category", string(category)))
			httpx.Problem(w, http.StatusInternalServerError, "NO_APPROVER_CONFIGURED", noApprover.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}

	roles := result.([]Role)
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	httpx.JSON(w, http.StatusOK, approversResponse{Category: string(category), Approvers: out})
}

type slaResponse struct {
	Role     string    `json:"role"`
	Priority string    `json:"priority"`
	Hours    float64   `json:"hours"`
	Deadline time.Time `json:"deadline"`
}

func (h *Handler) slaLookup(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	priority := Priority(chi.URLParam(r, "priority"))
	if !KnownPriority(priority) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown priority level")
		return
	}
	window := h.sla.HoursFor(role, priority)
	httpx.JSON(w, http.StatusOK, slaResponse{
		Role:     string(role),
		Priority: string(priority),
		Hours:    window.Hours(),
		Deadline: h.sla.Deadline(h.now().UTC(), role, priority),
	})
}

func toRoles(values []string) []Role {
	if len(values) == 0 {
		return nil
	}
	roles := make([]Role, len(values))
	for i, v := range values {
		roles[i] = Role(v)
	}
	return roles
}

func toPermissions(values []string) []Permission {
	if len(values) == 0 {
		return nil
	}
	perms := make([]Permission, len(values))
	for i, v := range values {
		perms[i] = Permission(v)
	}
	return perms
}
