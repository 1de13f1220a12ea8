// Package approvals persists the approval history of gated actions.
package approvals

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parkside-realty/parkside/internal/authz"
)

// Action enumerates approval log actions.
type Action string

const (
	// ActionSubmit marks a submit action.
	ActionSubmit Action = "SUBMIT"
	// ActionApprove marks an approve action.
	ActionApprove Action = "APPROVE"
	// ActionReject marks a reject action.
	ActionReject Action = "REJECT"
)

// Entry represents a single approval record.
type Entry struct {
	ID       int64
	Category authz.ActionCategory
	RefID    uuid.UUID
	ActorID  int64
	Action   Action
	Note     string
	At       time.Time
}

// Recorder persists approval history.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record writes an approval entry to the database.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil {
		return errors.New("approvals: recorder not initialised")
	}
	if entry.Category == "" {
		return errors.New("approvals: category required")
	}
	if entry.ActorID == 0 {
		return errors.New("approvals: actor required")
	}
	if entry.RefID == uuid.Nil {
		return errors.New("approvals: ref id required")
	}
	if entry.Action == "" {
		return errors.New("approvals: action required")
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO approvals (category, ref_id, actor_id, action, note, at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		string(entry.Category), entry.RefID, entry.ActorID, string(entry.Action), entry.Note, entry.At)
	if err != nil {
		r.logger.Error("record approval", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns approvals for a category/ref, oldest first.
func (r *Recorder) List(ctx context.Context, category authz.ActionCategory, ref uuid.UUID) ([]Entry, error) {
	if r == nil {
		return nil, errors.New("approvals: recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, category, ref_id, actor_id, action, note, at
FROM approvals WHERE category=$1 AND ref_id=$2 ORDER BY at ASC`, string(category), ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var category, action string
		if err := rows.Scan(&e.ID, &category, &e.RefID, &e.ActorID, &action, &e.Note, &e.At); err != nil {
			return nil, err
		}
		e.Category = authz.ActionCategory(category)
		e.Action = Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// EnsureSubmit creates a submit record if none exists for the ref.
func (r *Recorder) EnsureSubmit(ctx context.Context, category authz.ActionCategory, ref uuid.UUID, actorID int64, note string) error {
	if r == nil {
		return errors.New("approvals: recorder not initialised")
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT true FROM approvals WHERE category=$1 AND ref_id=$2 AND action='SUBMIT' LIMIT 1`,
		string(category), ref).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.Record(ctx, Entry{Category: category, RefID: ref, ActorID: actorID, Action: ActionSubmit, Note: note})
		}
		return err
	}
	return nil
}
