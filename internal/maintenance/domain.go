// Package maintenance handles maintenance ticket intake: response deadlines
// come from the SLA policy and cost sign-off goes through the approval
// chains.
package maintenance

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/parkside-realty/parkside/internal/authz"
)

// Status enumerates ticket lifecycle states.
type Status string

const (
	// StatusOpen marks a ticket awaiting response.
	StatusOpen Status = "OPEN"
	// StatusInProgress marks a ticket being worked.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusResolved marks a completed ticket.
	StatusResolved Status = "RESOLVED"
	// StatusEscalated marks a ticket that blew its response deadline.
	StatusEscalated Status = "ESCALATED"
)

// Domain errors.
var (
	ErrUnknownPriority = errors.New("maintenance: unknown priority")
	ErrNotApprover     = errors.New("maintenance: actor is not an empowered approver")
	ErrNoCost          = errors.New("maintenance: ticket has no cost to approve")
)

// Ticket represents a maintenance request against a property.
type Ticket struct {
	ID               uuid.UUID
	PropertyID       uuid.UUID
	Summary          string
	Priority         authz.Priority
	AssigneeRole     authz.Role
	ReporterID       int64
	CostCents        int64
	CostApproved     bool
	Status           Status
	ResponseDeadline time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
