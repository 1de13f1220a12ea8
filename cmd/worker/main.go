package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/parkside-realty/parkside/internal/app"
	"github.com/parkside-realty/parkside/internal/approvals"
	"github.com/parkside-realty/parkside/internal/authz"
	"github.com/parkside-realty/parkside/internal/maintenance"
	"github.com/parkside-realty/parkside/internal/platform/db"
	"github.com/parkside-realty/parkside/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	catalog := authz.DefaultCatalog()
	chains := authz.DefaultApprovalChains()
	slaPolicy := authz.DefaultSLAPolicy()
	if err := authz.ValidateConfig(catalog, chains, slaPolicy); err != nil {
		logger.Error("authorization config invalid", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	resolver := authz.NewResolver(catalog, logger)
	approvalRecorder := approvals.NewRecorder(pool, logger)
	maintenanceRepo := maintenance.NewRepository(pool)
	maintenanceService := maintenance.NewService(maintenanceRepo, slaPolicy, chains, resolver, nil, approvalRecorder, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSLAEscalate, Handler: jobs.NewSLAEscalationHandler(maintenanceService, logger)},
			{Type: jobs.TaskSLASweep, Handler: jobs.NewSLASweepHandler(maintenanceService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewSLASweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
