package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskhub/internal/config"
	"taskhub/internal/database"
	"taskhub/internal/event"
	"taskhub/internal/handler"
	"taskhub/internal/middleware"
	"taskhub/internal/repository"
	"taskhub/internal/router"
	"taskhub/internal/service"
	"taskhub/internal/storage"
	"taskhub/internal/websocket"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := storage.New(cfg.DocumentRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, database.PoolOptions{
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	slog.Info("database ready")

	authService, err := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.RefreshTTL,
		cfg.TwoFactorTTL, cfg.LoginMaxFails, cfg.LoginLockFor, userRepo, tokenRepo)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(authService)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()

	notificationService := service.NewNotificationService(notificationRepo, bus)
	activityService := service.NewActivityService(activityRepo)
	projectService := service.NewProjectService(projectRepo, userRepo, notificationService, activityService, bus)
	taskService := service.NewTaskService(taskRepo, projectRepo, notificationService, activityService, bus)
	commentService := service.NewCommentService(commentRepo, taskRepo, projectRepo, notificationService, activityService, bus)
	documentService := service.NewDocumentService(documentRepo, taskRepo, projectRepo, store,
		cfg.AllowedMIMETypes, cfg.MaxUploadSize, cfg.ThumbnailRoot, activityService, bus)
	dashboardService := service.NewDashboardService(dashboardRepo)
	userService := service.NewUserService(userRepo, tokenRepo, activityService)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(userService),
		Project:      handler.NewProjectHandler(projectService),
		Task:         handler.NewTaskHandler(taskService),
		Comment:      handler.NewCommentHandler(commentService),
		Document:     handler.NewDocumentHandler(documentService, cfg.MaxUploadSize),
		Notification: handler.NewNotificationHandler(notificationService),
		Dashboard:    handler.NewDashboardHandler(dashboardService),
		Activity:     handler.NewActivityHandler(activityService),
		WS:           websocket.ServeWS(hub, authService),
	})

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go expiredTokenSweeper(cleanupCtx, tokenRepo)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				db.Close()
			},
			func() {
				cleanupCancel()
			},
		},
	}, nil
}

// expiredTokenSweeper prunes dead refresh tokens once an hour so the
// table does not grow without bound.
func expiredTokenSweeper(ctx context.Context, tokens *repository.TokenRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := tokens.CleanExpired(ctx)
			if err != nil {
				slog.Warn("refresh token sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("pruned expired refresh tokens", "count", removed)
			}
		}
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.server.Shutdown(ctx)

	// In-flight requests have drained; release the pool and background
	// workers in reverse construction order.
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}

	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
