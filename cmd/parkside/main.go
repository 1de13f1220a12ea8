package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/parkside-realty/parkside/internal/app"
	"github.com/parkside-realty/parkside/internal/approvals"
	"github.com/parkside-realty/parkside/internal/auth"
	"github.com/parkside-realty/parkside/internal/authz"
	"github.com/parkside-realty/parkside/internal/maintenance"
	"github.com/parkside-realty/parkside/internal/observability"
	"github.com/parkside-realty/parkside/internal/platform/cache"
	"github.com/parkside-realty/parkside/internal/platform/db"
	"github.com/parkside-realty/parkside/internal/session"
	"github.com/parkside-realty/parkside/internal/users"
	"github.com/parkside-realty/parkside/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := session.NewManager(redisClient, "parkside_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := session.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	resolver := authz.NewResolver(catalog, logger)
	gate := authz.NewGate(resolver)
	guard := authz.Middleware{Gate: gate, Logger: logger, Recorder: metrics}
	authzHandler := authz.NewHandler(logger, gate, chains, slaPolicy, metrics)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, catalog, sessionManager)
	usersHandler := users.NewHandler(logger, usersService, resolver, guard)

	approvalRecorder := approvals.NewRecorder(dbpool, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	maintenanceRepo := maintenance.NewRepository(dbpool)
	maintenanceService := maintenance.NewService(maintenanceRepo, slaPolicy, chains, resolver, jobClient, approvalRecorder, logger)
	maintenanceHandler := maintenance.NewHandler(logger, maintenanceService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		AuthzHandler:       authzHandler,
		UsersHandler:       usersHandler,
		MaintenanceHandler: maintenanceHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
