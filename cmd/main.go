package main

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

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nhsfuk/dharmic-games/config"
	"github.com/nhsfuk/dharmic-games/db"
	"github.com/nhsfuk/dharmic-games/handlers"
	"github.com/nhsfuk/dharmic-games/realtime"
	"github.com/nhsfuk/dharmic-games/repositories"
	api "github.com/nhsfuk/dharmic-games/routes"
	"github.com/nhsfuk/dharmic-games/services"
	"github.com/nhsfuk/dharmic-games/storage"
	"github.com/nhsfuk/dharmic-games/store"
)

// listeningStore is a Store fed by an external change feed.
type listeningStore interface {
	store.Store
	Listen(ctx context.Context) error
	Close() error
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("store_backend", cfg.StoreBackend))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open data store", slog.Any("error", err))
		os.Exit(1)
	}
	if ls, ok := st.(listeningStore); ok {
		defer func() {
			if err := ls.Close(); err != nil {
				logger.Error("failed to close data store", slog.Any("error", err))
			} else {
				logger.Info("data store closed")
			}
		}()
		go func() {
			if err := ls.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("store change listener exited", slog.Any("error", err))
			}
		}()
	}

	var uploader storage.FileUploader
	r2Config := storage.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	if r2Config.Enabled() {
		uploader, err = storage.NewR2Uploader(ctx, r2Config)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("Cloudflare R2 is not configured, logo uploads are disabled")
	}

	var mailer services.Mailer
	if cfg.SMTPEnabled() {
		mailer = services.NewEmailService(cfg)
		logger.Info("SMTP mailer initialized", slog.String("host", cfg.SMTPHost))
	} else {
		logger.Warn("SMTP is not configured, admin decisions will not be emailed")
	}

	notifier := realtime.NewNotifier(logger)
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(ctx)
	notifier.Subscribe(realtime.Wildcard, wsHub.Deliver)
	logger.Info("WebSocket hub started")

	universityRepo := repositories.NewUniversityRepository(st)
	playerRepo := repositories.NewPlayerRepository(st)
	matchRepo := repositories.NewMatchRepository(st)
	liveScoreRepo := repositories.NewLiveScoreRepository(st)
	requestRepo := repositories.NewAdminRequestRepository(st)
	accountRepo := repositories.NewAdminAccountRepository(st)
	referenceRepo := repositories.NewReferenceRepository(st)
	logger.Info("repositories initialized")

	universityService := services.NewUniversityService(st, universityRepo, playerRepo, matchRepo, uploader, logger)
	playerService := services.NewPlayerService(playerRepo, universityRepo)
	matchService := services.NewMatchService(st, matchRepo, universityRepo, liveScoreRepo, universityService)
	standingsService := services.NewStandingsService(matchRepo, universityRepo, logger)
	adminService := services.NewAdminService(st, requestRepo, accountRepo, universityRepo, mailer, logger)
	seedService := services.NewSeedService(st, referenceRepo)
	reconcileService := services.NewReconcileService(st, playerRepo, logger)
	dashboardService := services.NewDashboardService(universityRepo, matchRepo, requestRepo, playerService)
	syncService := services.NewSyncService(st, notifier, standingsService, playerService, logger)
	logger.Info("services initialized")

	if created, err := adminService.BootstrapSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
		logger.Error("failed to bootstrap super admin", slog.Any("error", err))
		os.Exit(1)
	} else if created {
		logger.Info("super admin account created", slog.String("email", cfg.SuperAdminEmail))
	}

	if _, err := standingsService.Recompute(ctx); err != nil {
		logger.Warn("initial standings computation failed", slog.Any("error", err))
	}

	syncService.Start(ctx)
	defer syncService.Stop()
	logger.Info("store sync started")

	if cfg.ReconcileInterval > 0 {
		go reconcileService.Run(ctx, cfg.ReconcileInterval)
		logger.Info("player reconciliation scheduled", slog.Duration("interval", cfg.ReconcileInterval))
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		Accounts:       adminService,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	}, api.Handlers{
		Auth:       handlers.NewAuthHandler(adminService, cfg.JWTSecretKey),
		Admin:      handlers.NewAdminHandler(adminService, seedService, reconcileService),
		University: handlers.NewUniversityHandler(universityService),
		Player:     handlers.NewPlayerHandler(playerService),
		Match:      handlers.NewMatchHandler(matchService),
		Standings:  handlers.NewStandingsHandler(standingsService),
		Dashboard:  handlers.NewDashboardHandler(dashboardService),
		Reference:  handlers.NewReferenceHandler(seedService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
		Health:     handlers.NewHealthHandler(wsHub, cfg.StoreBackend),
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			cancel()
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	cancel()
	logger.Info("application exited")
}

func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			return nil, err
		}
		logger.Info("database connection established")
		version, err := db.Migrate(dbConn)
		if err != nil {
			dbConn.Close()
			return nil, err
		}
		logger.Info("database migrations applied", slog.Uint64("version", uint64(version)))
		return store.NewPostgresStore(dbConn, cfg.DatabaseURL, logger), nil

	case config.BackendRedis:
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := goredis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		logger.Info("redis connection established")
		return store.NewRedisStore(client, cfg.RedisKeyPrefix, logger), nil

	default:
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
}
