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

	"github.com/campus-labs/campus/internal/app"
	"github.com/campus-labs/campus/internal/auth"
	"github.com/campus-labs/campus/internal/courses"
	"github.com/campus-labs/campus/internal/observability"
	"github.com/campus-labs/campus/internal/platform/cache"
	"github.com/campus-labs/campus/internal/platform/db"
	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/roles"
	"github.com/campus-labs/campus/internal/shared"
	"github.com/campus-labs/campus/internal/users"
	"github.com/campus-labs/campus/internal/view"
	"github.com/campus-labs/campus/internal/visits"
	visitshttp "github.com/campus-labs/campus/internal/visits/http"
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
	slog.SetDefault(logger)

	dbpool, err := db.New(ctx, cfg.PGDSN)
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

	sessionManager := shared.NewSessionManager(redisClient, "campus_session", cfg.SessionSecret, cfg.SessionTTL, cfg.RememberTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(dbpool), cfg.AdminRoleID)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, metrics)

	rolesService := roles.NewService(roles.NewRepository(dbpool))
	usersService := users.NewService(users.NewRepository(dbpool), rolesService)
	rbacMiddleware := rbac.Middleware{Records: usersService.LoadRecord, Logger: logger, DeniedRedirect: "/users"}
	usersHandler := users.NewHandler(logger, usersService, rolesService, templates, csrfManager, rbacMiddleware)

	visitsRepo := visits.NewRepository(dbpool)
	actionLogger := visits.NewActionLogger(visitsRepo, logger, metrics)
	visitsService := visits.NewService(visitsRepo, cfg.VisitsPageSize)
	visitsHandler := visitshttp.NewHandler(logger, visitsService, templates, csrfManager, rbacMiddleware)

	coursesService := courses.NewService(courses.NewRepository(dbpool))
	coursesHandler := courses.NewHandler(logger, coursesService, templates, csrfManager, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Principals:     authService,
		ActionLogger:   actionLogger,
		AuthHandler:    authHandler,
		UsersHandler:   usersHandler,
		VisitsHandler:  visitsHandler,
		CoursesHandler: coursesHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
