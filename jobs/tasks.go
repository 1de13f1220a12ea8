package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSLAEscalate checks a single ticket at its response deadline.
	TaskSLAEscalate = "sla:escalate"
	// TaskSLASweep escalates every overdue ticket, run nightly as a safety net.
	TaskSLASweep = "sla:sweep"
)

// SLAEscalationPayload identifies the ticket to check.
type SLAEscalationPayload struct {
	TicketID uuid.UUID `json:"ticket_id"`
	Deadline time.Time `json:"deadline"`
}

// NewSLAEscalationTask constructs an Asynq task for a single ticket check.
func NewSLAEscalationTask(ticketID uuid.UUID, deadline time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SLAEscalationPayload{TicketID: ticketID, Deadline: deadline})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSLAEscalate, body, asynq.Queue(QueueDefault)), nil
}

// NewSLASweepTask constructs the nightly sweep task.
func NewSLASweepTask() *asynq.Task {
	return asynq.NewTask(TaskSLASweep, nil, asynq.Queue(QueueDefault))
}
