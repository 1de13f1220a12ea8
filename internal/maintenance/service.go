package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parkside-realty/parkside/internal/approvals"
	"github.com/parkside-realty/parkside/internal/authz"
)

// RepositoryPort defines data access methods for tickets.
type RepositoryPort interface {
	Create(ctx context.Context, t *Ticket) error
	Get(ctx context.Context, id uuid.UUID) (*Ticket, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	SetCostApproved(ctx context.Context, id uuid.UUID) error
	ListOverdue(ctx context.Context, now time.Time) ([]Ticket, error)
}

// EscalationQueue schedules deadline escalation jobs.
type EscalationQueue interface {
	EnqueueSLAEscalation(ctx context.Context, ticketID uuid.UUID, deadline time.Time) error
}

// ApprovalLog records approval history.
type ApprovalLog interface {
	EnsureSubmit(ctx context.Context, category authz.ActionCategory, ref uuid.UUID, actorID int64, note string) error
	Record(ctx context.Context, entry approvals.Entry) error
}

// Actor identifies who is performing a maintenance operation.
type Actor struct {
	ID    int64
	Roles []authz.Role
}

// CreateTicketInput collects intake fields.
type CreateTicketInput struct {
	PropertyID   uuid.UUID
	Summary      string
	Priority     authz.Priority
	AssigneeRole authz.Role
	CostCents    int64
}

// Service handles ticket business logic.
type Service struct {
	repo      RepositoryPort
	sla       *authz.SLAPolicy
	chains    *authz.ApprovalChains
	resolver  *authz.Resolver
	queue     EscalationQueue
	approvals ApprovalLog
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, sla *authz.SLAPolicy, chains *authz.ApprovalChains, resolver *authz.Resolver, queue EscalationQueue, log ApprovalLog, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		sla:       sla,
		chains:    chains,
		resolver:  resolver,
		queue:     queue,
		approvals: log,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateTicket opens a ticket, derives its response deadline from the SLA
// policy for the assignee role and priority, and schedules an escalation
// check at the deadline.
func (s *Service) CreateTicket(ctx context.Context, reporter Actor, input CreateTicketInput) (*Ticket, error) {
	if !authz.KnownPriority(input.Priority) {
		return nil, ErrUnknownPriority
	}
	assignee := input.AssigneeRole
	if assignee == "" {
		assignee = authz.RolePropertyManager
	}

	now := s.now().UTC()
	ticket := &Ticket{
		ID:               uuid.New(),
		PropertyID:       input.PropertyID,
		Summary:          input.Summary,
		Priority:         input.Priority,
		AssigneeRole:     assignee,
		ReporterID:       reporter.ID,
		CostCents:        input.CostCents,
		Status:           StatusOpen,
		ResponseDeadline: s.sla.Deadline(now, assignee, input.Priority),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, err
	}

	if s.queue != nil {
		if err := s.queue.EnqueueSLAEscalation(ctx, ticket.ID, ticket.ResponseDeadline); err != nil {
			// The nightly sweep will still catch an overdue ticket.
			s.logger.Warn("enqueue sla escalation",
				slog.String("ticket", ticket.ID.String()), slog.Any("error", err))
		}
	}
	return ticket, nil
}

// GetTicket fetches a ticket.
func (s *Service) GetTicket(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	return s.repo.Get(ctx, id)
}

// ApproveCost signs off a ticket's cost. The actor must hold one of the
// roles the approval chain empowers for the ticket's amount.
func (s *Service) ApproveCost(ctx context.Context, actor Actor, ticketID uuid.UUID) error {
	ticket, err := s.repo.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.CostCents <= 0 {
		return ErrNoCost
	}

	approvers, err := s.chains.ApproversFor(authz.ActionMaintenanceCost, authz.ApprovalContext{
		AmountCents: ticket.CostCents,
	})
	if err != nil {
		return err
	}
	if !s.resolver.HasAnyRole(actor.Roles, approvers) {
		return ErrNotApprover
	}

	if err := s.approvals.EnsureSubmit(ctx, authz.ActionMaintenanceCost, ticket.ID, ticket.ReporterID, ticket.Summary); err != nil {
		return err
	}
	if err := s.approvals.Record(ctx, approvals.Entry{
		Category: authz.ActionMaintenanceCost,
		RefID:    ticket.ID,
		ActorID:  actor.ID,
		Action:   approvals.ActionApprove,
	}); err != nil {
		return err
	}
	return s.repo.SetCostApproved(ctx, ticket.ID)
}

// Escalate flags a ticket whose response deadline passed while still open.
// Called by the escalation job at the deadline and by the nightly sweep.
func (s *Service) Escalate(ctx context.Context, ticketID uuid.UUID) error {
	ticket, err := s.repo.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != StatusOpen {
		return nil
	}
	if ticket.ResponseDeadline.After(s.now()) {
		return nil
	}
	s.logger.Warn("maintenance ticket past response deadline",
		slog.String("ticket", ticket.ID.String()),
		slog.String("priority", string(ticket.Priority)),
		slog.String("assignee_role", string(ticket.AssigneeRole)))
	return s.repo.UpdateStatus(ctx, ticket.ID, StatusEscalated)
}

// SweepOverdue escalates every open ticket past its deadline. Returns the
// number escalated.
func (s *Service) SweepOverdue(ctx context.Context) (int, error) {
	overdue, err := s.repo.ListOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	escalated := 0
	for _, ticket := range overdue {
		if err := s.Escalate(ctx, ticket.ID); err != nil {
			s.logger.Error("sweep escalate",
				slog.String("ticket", ticket.ID.String()), slog.Any("error", err))
			continue
		}
		escalated++
	}
	return escalated, nil
}
