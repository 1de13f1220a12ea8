package maintenance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/parkside-realty/parkside/internal/authz"
	"github.com/parkside-realty/parkside/internal/platform/httpx"
	"github.com/parkside-realty/parkside/internal/session"
)

// Handler serves maintenance ticket endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs the maintenance HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes attaches maintenance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequirePermissions(authz.PermMaintenanceRequest)).Post("/tickets", h.createTicket)
	r.With(h.guard.RequireAuth()).Get("/tickets/{id}", h.getTicket)
	r.With(h.guard.RequirePermissions(authz.PermMaintenanceCostApprove)).Post("/tickets/{id}/approve-cost", h.approveCost)
}

type createTicketRequest struct {
	PropertyID string `json:"property_id" validate:"required,uuid4"`
	Summary    string `json:"summary" validate:"required,max=500"`
	Priority   string `json:"priority" validate:"required"`
	CostCents  int64  `json:"cost_cents" validate:"gte=0"`
}

type ticketResponse struct {
	ID               string `json:"id"`
	PropertyID       string `json:"property_id"`
	Summary          string `json:"summary"`
	Priority         string `json:"priority"`
	AssigneeRole     string `json:"assignee_role"`
	CostCents        int64  `json:"cost_cents"`
	CostApproved     bool   `json:"cost_approved"`
	Status           string `json:"status"`
	ResponseDeadline string `json:"response_deadline"`
}

func (h *Handler) createTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "property_id must be a UUID")
		return
	}

	actor, ok := h.currentActor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}

	ticket, err := h.service.CreateTicket(r.Context(), actor, CreateTicketInput{
		PropertyID: propertyID,
		Summary:    req.Summary,
		Priority:   authz.Priority(req.Priority),
		CostCents:  req.CostCents,
	})
	if err != nil {
		if errors.Is(err, ErrUnknownPriority) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown priority level")
			return
		}
		h.logger.Error("create ticket", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTicketResponse(ticket))
}

func (h *Handler) getTicket(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "ticket id must be a UUID")
		return
	}
	ticket, err := h.service.GetTicket(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTicketResponse(ticket))
}

func (h *Handler) approveCost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "ticket id must be a UUID")
		return
	}
	actor, ok := h.currentActor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}

	if err := h.service.ApproveCost(r.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, ErrNotApprover):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "you are not empowered to approve this cost")
		case errors.Is(err, ErrNoCost):
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "ticket has no cost to approve")
		default:
			var noApprover *authz.NoApproverError
			if errors.As(err, &noApprover) {
				h.logger.Error("approve cost: no chain configured", slog.String("ticket", id.String()))
				httpx.Problem(w, http.StatusInternalServerError, "NO_APPROVER_CONFIGURED", noApprover.Error())
				return
			}
			h.logger.Error("approve cost", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "cost approved"})
}

func (h *Handler) currentActor(r *http.Request) (Actor, bool) {
	sess := session.FromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return Actor{}, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return Actor{}, false
	}
	return Actor{ID: id, Roles: sess.Roles()}, true
}

func toTicketResponse(t *Ticket) ticketResponse {
	return ticketResponse{
		ID:               t.ID.String(),
		PropertyID:       t.PropertyID.String(),
		Summary:          t.Summary,
		Priority:         string(t.Priority),
		AssigneeRole:     string(t.AssigneeRole),
		CostCents:        t.CostCents,
		CostApproved:     t.CostApproved,
		Status:           string(t.Status),
		ResponseDeadline: t.ResponseDeadline.UTC().Format(time.RFC3339),
	}
}
