package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ulasan/internal/config"
	"ulasan/internal/handlers"
	"ulasan/internal/observability"
	"ulasan/internal/repositories"
	"ulasan/internal/services"
	"ulasan/internal/storage"
	"ulasan/pkg/rabbitmq"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server.

The database schema is migrated on startup. When ADMIN_USERNAME and
ADMIN_PASSWORD are set the admin account is created or updated. When
RABBITMQ_URL is set review events are published to the review_events
queue and logged by an in-process consumer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

func newFileStore(ctx context.Context, cfg config.Config) (storage.FileStore, error) {
	switch cfg.UploadBackend {
	case "s3":
		store, err := storage.NewS3FileStore(ctx, storage.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("storing uploads in s3")
		return store, nil
	default:
		log.Info().Str("dir", cfg.UploadDir).Msg("storing uploads on local disk")
		return storage.NewLocalFileStore(cfg.UploadDir), nil
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	// --- Database ---
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// --- Repositories and services ---
	userRepo := repositories.NewGORMUserRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)

	authService := services.NewAuthService(userRepo, cfg.SessionSecret, cfg.SessionTTL)
	if cfg.AdminConfigured() {
		if err := authService.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return err
		}
		log.Info().Str("username", cfg.AdminUsername).Msg("admin account ready")
	}

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		return err
	}

	// --- RabbitMQ (optional) ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return err
		}
		defer mqClient.Close()
		if err := mqClient.ConsumeReviewEvents(rabbitmq.LogReviewEvent); err != nil {
			log.Error().Err(err).Msg("failed to start review event consumer")
		}
		publisher = mqClient
	}

	reviewService := services.NewReviewService(reviewRepo, files, publisher)

	app := handlers.NewApp(handlers.AppConfig{
		Logger:         log.Logger,
		AuthService:    authService,
		ReviewService:  reviewService,
		Files:          files,
		Registry:       observability.InitRegistry(),
		SecureCookies:  !cfg.IsDevelopment(),
		LoginRateLimit: cfg.LoginRateLimit,
		MaxUploadMB:    cfg.MaxUploadMB,
		EventsEnabled:  publisher != nil,
	})

	// --- HTTP server with graceful shutdown ---
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.AppPort).Msg("starting server")
		serverErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server gracefully stopped")
	return nil
}
