package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parkside-realty/parkside/internal/authz"
	"github.com/parkside-realty/parkside/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for tickets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketColumns = `id, property_id, summary, priority, assignee_role, reporter_id,
cost_cents, cost_approved, status, response_deadline, created_at, updated_at`

// Create inserts a new ticket.
func (r *Repository) Create(ctx context.Context, t *Ticket) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO maintenance_tickets
(id, property_id, summary, priority, assignee_role, reporter_id, cost_cents, cost_approved, status, response_deadline, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`,
		t.ID, t.PropertyID, t.Summary, string(t.Priority), string(t.AssigneeRole),
		t.ReporterID, t.CostCents, t.CostApproved, string(t.Status), t.ResponseDeadline.UTC())
	return err
}

// Get fetches a ticket by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM maintenance_tickets WHERE id = $1`, id)
	return scanTicket(row)
}

// UpdateStatus transitions a ticket's status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE maintenance_tickets SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SetCostApproved records cost sign-off.
func (r *Repository) SetCostApproved(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE maintenance_tickets SET cost_approved = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ListOverdue returns open tickets whose response deadline has passed.
func (r *Repository) ListOverdue(ctx context.Context, now time.Time) ([]Ticket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+ticketColumns+` FROM maintenance_tickets
WHERE status = $1 AND response_deadline < $2 ORDER BY response_deadline`,
		string(StatusOpen), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tickets []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	var priority, assignee, status string
	err := row.Scan(&t.ID, &t.PropertyID, &t.Summary, &priority, &assignee, &t.ReporterID,
		&t.CostCents, &t.CostApproved, &status, &t.ResponseDeadline, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	t.Priority = authz.Priority(priority)
	t.AssigneeRole = authz.Role(assignee)
	t.Status = Status(status)
	return &t, nil
}
