package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/parkside-realty/parkside/internal/maintenance"
)

// NewSLAEscalationHandler returns the handler for single-ticket deadline checks.
func NewSLAEscalationHandler(svc *maintenance.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SLAEscalationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := svc.Escalate(ctx, payload.TicketID); err != nil {
			logger.Error("sla escalation",
				slog.String("ticket", payload.TicketID.String()), slog.Any("error", err))
			return err
		}
		return nil
	}
}

// NewSLASweepHandler returns the handler for the nightly overdue sweep.
func NewSLASweepHandler(svc *maintenance.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		escalated, err := svc.SweepOverdue(ctx)
		if err != nil {
			logger.Error("sla sweep", slog.Any("error", err))
			return err
		}
		logger.Info("sla sweep complete", slog.Int("escalated", escalated))
		return nil
	}
}
