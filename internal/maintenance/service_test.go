package maintenance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkside-realty/parkside/internal/approvals"
	"github.com/parkside-realty/parkside/internal/authz"
	"github.com/parkside-realty/parkside/internal/platform/httpx"
)

type memoryTicketRepo struct {
	tickets map[uuid.UUID]*Ticket
}

func newMemoryTicketRepo() *memoryTicketRepo {
	return &memoryTicketRepo{tickets: make(map[uuid.UUID]*Ticket)}
}

func (r *memoryTicketRepo) Create(ctx context.Context, t *Ticket) error {
	copied := *t
	r.tickets[t.ID] = &copied
	return nil
}

func (r *memoryTicketRepo) Get(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *memoryTicketRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	t, ok := r.tickets[id]
	if !ok {
		return httpx.ErrNotFound
	}
	t.Status = status
	return nil
}

func (r *memoryTicketRepo) SetCostApproved(ctx context.Context, id uuid.UUID) error {
	t, ok := r.tickets[id]
	if !ok {
		return httpx.ErrNotFound
	}
	t.CostApproved = true
	return nil
}

func (r *memoryTicketRepo) ListOverdue(ctx context.Context, now time.Time) ([]Ticket, error) {
	var out []Ticket
	for _, t := range r.tickets {
		if t.Status == StatusOpen && t.ResponseDeadline.Before(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

type stubQueue struct {
	enqueued []uuid.UUID
	err      error
}

func (q *stubQueue) EnqueueSLAEscalation(ctx context.Context, ticketID uuid.UUID, deadline time.Time) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, ticketID)
	return nil
}

type stubApprovalLog struct {
	entries []approvals.Entry
}

func (l *stubApprovalLog) EnsureSubmit(ctx context.Context, category authz.ActionCategory, ref uuid.UUID, actorID int64, note string) error {
	return nil
}

func (l *stubApprovalLog) Record(ctx context.Context, entry approvals.Entry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, repo RepositoryPort, queue EscalationQueue) *Service {
	t.Helper()
	catalog := authz.DefaultCatalog()
	require.NoError(t, catalog.Validate())
	resolver := authz.NewResolver(catalog, nil)
	return NewService(repo, authz.DefaultSLAPolicy(), authz.DefaultApprovalChains(), resolver, queue, &stubApprovalLog{}, discardLogger())
}

func TestCreateTicketComputesDeadline(t *testing.T) {
	repo := newMemoryTicketRepo()
	queue := &stubQueue{}
	svc := newTestService(t, repo, queue)

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	ticket, err := svc.CreateTicket(context.Background(), Actor{ID: 5, Roles: []authz.Role{authz.RoleTenant}}, CreateTicketInput{
		PropertyID: uuid.New(),
		Summary:    "Boiler down in unit 4B",
		Priority:   authz.PriorityCritical,
	})
	require.NoError(t, err)

	// default assignee property-manager: critical = 4h
	assert.Equal(t, authz.RolePropertyManager, ticket.AssigneeRole)
	assert.Equal(t, start.Add(4*time.Hour), ticket.ResponseDeadline)
	assert.Equal(t, StatusOpen, ticket.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, ticket.ID, queue.enqueued[0])
}

func TestCreateTicketUnconfiguredRoleUsesDefaultSLA(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := newTestService(t, repo, &stubQueue{})

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	ticket, err := svc.CreateTicket(context.Background(), Actor{ID: 5}, CreateTicketInput{
		PropertyID:   uuid.New(),
		Summary:      "Lobby lights flickering",
		Priority:     authz.PriorityLow,
		AssigneeRole: authz.RoleFinanceManager,
	})
	require.NoError(t, err)
	assert.Equal(t, start.Add(authz.DefaultSLAHours), ticket.ResponseDeadline)
}

func TestCreateTicketUnknownPriority(t *testing.T) {
	svc := newTestService(t, newMemoryTicketRepo(), &stubQueue{})

	_, err := svc.CreateTicket(context.Background(), Actor{ID: 5}, CreateTicketInput{
		PropertyID: uuid.New(),
		Summary:    "x",
		Priority:   authz.Priority("urgent"),
	})
	assert.ErrorIs(t, err, ErrUnknownPriority)
}

func TestCreateTicketSurvivesEnqueueFailure(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := newTestService(t, repo, &stubQueue{err: errors.New("redis down")})

	ticket, err := svc.CreateTicket(context.Background(), Actor{ID: 5}, CreateTicketInput{
		PropertyID: uuid.New(),
		Summary:    "Broken gate",
		Priority:   authz.PriorityMedium,
	})
	require.NoError(t, err)
	_, err = repo.Get(context.Background(), ticket.ID)
	assert.NoError(t, err)
}

func TestApproveCostRequiresEmpoweredRole(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := newTestService(t, repo, &stubQueue{})

	ticket, err := svc.CreateTicket(context.Background(), Actor{ID: 5}, CreateTicketInput{
		PropertyID: uuid.New(),
		Summary:    "Roof repair",
		Priority:   authz.PriorityHigh,
		CostCents:  60_000,
	})
	require.NoError(t, err)

	err = svc.ApproveCost(context.Background(), Actor{ID: 9, Roles: []authz.Role{authz.RoleTenant}}, ticket.ID)
	assert.ErrorIs(t, err, ErrNotApprover)

	err = svc.ApproveCost(context.Background(), Actor{ID: 10, Roles: []authz.Role{authz.RolePropertyManager}}, ticket.ID)
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.CostApproved)
}

func TestApproveCostLargeAmountAllowsFinanceManager(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := newTestService(t, repo, &stubQueue{})

	ticket, err := svc.CreateTicket(context.Background(), Actor{ID: 5}, CreateTicketInput{
		PropertyID: uuid.New(),
		Summary:    "Facade restoration",
		Priority:   authz.PriorityLow,
		CostCents:  250_000,
	})
	require.NoError(t, err)

	err = svc.ApproveCost(context.Background(), Actor{ID: 11, Roles: []authz.Role{authz.RoleFinanceManager}}, ticket.ID)
	assert.NoError(t, err)
}

func TestApproveCostNoCost(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := newTestService(t, repo, &stubQueue{})

	ticket, err := svc.CreateTicket(context.Background(), Actor{ID: 5}, CreateTicketInput{
		PropertyID: uuid.New(),
		Summary:    "Squeaky door",
		Priority:   authz.PriorityLow,
	})
	require.NoError(t, err)

	err = svc.ApproveCost(context.Background(), Actor{ID: 10, Roles: []authz.Role{authz.RolePropertyManager}}, ticket.ID)
	assert.ErrorIs(t, err, ErrNoCost)
}

func TestEscalateOnlyPastDeadline(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := newTestService(t, repo, &stubQueue{})

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	ticket, err := svc.CreateTicket(context.Background(), Actor{ID: 5}, CreateTicketInput{
		PropertyID: uuid.New(),
		Summary:    "Water leak",
		Priority:   authz.PriorityHigh,
	})
	require.NoError(t, err)

	// before deadline: nothing happens
	require.NoError(t, svc.Escalate(context.Background(), ticket.ID))
	stored, _ := repo.Get(context.Background(), ticket.ID)
	assert.Equal(t, StatusOpen, stored.Status)

	// past deadline: escalated
	svc.now = func() time.Time { return ticket.ResponseDeadline.Add(time.Minute) }
	require.NoError(t, svc.Escalate(context.Background(), ticket.ID))
	stored, _ = repo.Get(context.Background(), ticket.ID)
	assert.Equal(t, StatusEscalated, stored.Status)

	// idempotent on a non-open ticket
	require.NoError(t, svc.Escalate(context.Background(), ticket.ID))
}

func TestSweepOverdue(t *testing.T) {
	repo := newMemoryTicketRepo()
	svc := newTestService(t, repo, &stubQueue{})

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	overdue, err := svc.CreateTicket(context.Background(), Actor{ID: 5}, CreateTicketInput{
		PropertyID: uuid.New(),
		Summary:    "Elevator stuck",
		Priority:   authz.PriorityCritical,
	})
	require.NoError(t, err)
	fresh, err := svc.CreateTicket(context.Background(), Actor{ID: 5}, CreateTicketInput{
		PropertyID: uuid.New(),
		Summary:    "Paint touch-up",
		Priority:   authz.PriorityLow,
	})
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(6 * time.Hour) }
	escalated, err := svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, escalated)

	storedOverdue, _ := repo.Get(context.Background(), overdue.ID)
	assert.Equal(t, StatusEscalated, storedOverdue.Status)
	storedFresh, _ := repo.Get(context.Background(), fresh.ID)
	assert.Equal(t, StatusOpen, storedFresh.Status)
}
