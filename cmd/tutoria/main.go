package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tutoria-app/tutoria/internal/app"
	"github.com/tutoria-app/tutoria/internal/auth"
	"github.com/tutoria-app/tutoria/internal/bundles"
	"github.com/tutoria-app/tutoria/internal/notifications"
	"github.com/tutoria-app/tutoria/internal/observability"
	"github.com/tutoria-app/tutoria/internal/platform/cache"
	"github.com/tutoria-app/tutoria/internal/platform/db"
	"github.com/tutoria-app/tutoria/internal/rbac"
	"github.com/tutoria-app/tutoria/internal/roles"
	"github.com/tutoria-app/tutoria/internal/shared"
	"github.com/tutoria-app/tutoria/internal/users"
	"github.com/tutoria-app/tutoria/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "tutoria_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)

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

	rolesRepo := roles.NewRepository(pool)
	notificationsRepo := notifications.NewRepository(pool)
	notificationsService := notifications.NewService(notificationsRepo, jobClient, rolesRepo, logger)

	rbacRepo := rbac.NewRepository(pool)
	rbacService := rbac.NewService(rbacRepo, notificationsService, auditLogger, logger)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	rolesService := roles.NewService(rolesRepo, auditLogger, logger)
	usersService := users.NewService(users.NewRepository(pool))
	authService := auth.NewService(auth.NewRepository(pool))
	bundlesService := bundles.NewService(bundles.NewRepository(pool), auditLogger, logger)

	metrics := observability.NewMetrics()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,

		AuthHandler:          auth.NewHandler(logger, authService, sessionManager, csrfManager),
		RolesHandler:         roles.NewHandler(logger, rolesService, rbacMiddleware),
		UsersHandler:         users.NewHandler(logger, usersService, rbacService, rbacMiddleware),
		BundlesHandler:       bundles.NewHandler(logger, bundlesService, rbacMiddleware),
		NotificationsHandler: notifications.NewHandler(logger, notificationsService, rbacMiddleware),
		JobHandler:           jobs.NewHandler(inspector, logger),

		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
