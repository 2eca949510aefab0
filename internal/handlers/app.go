package handlers

import (
	"time"

	"ulasan/internal/middleware"
	"ulasan/internal/observability"
	"ulasan/internal/services"
	"ulasan/internal/storage"
	"ulasan/internal/views"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// AppConfig holds everything NewApp wires into the Fiber app.
type AppConfig struct {
	Logger        zerolog.Logger
	AuthService   *services.AuthService
	ReviewService *services.ReviewService
	Files         storage.FileStore
	Registry      *prometheus.Registry // nil disables /metrics

	SecureCookies  bool
	LoginRateLimit int
	MaxUploadMB    int
	EventsEnabled  bool
}

// NewApp builds the Fiber app with middleware and every route registered.
func NewApp(cfg AppConfig) *fiber.App {
	bodyLimit := cfg.MaxUploadMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:               "ulasan",
		Views:                 views.New(),
		ViewsLayout:           views.Layout,
		BodyLimit:             bodyLimit,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.Logger(cfg.Logger))
	app.Use(middleware.Metrics())
	app.Use(middleware.Session(cfg.AuthService))

	pages := NewPages(cfg.SecureCookies)
	NewPageHandler(pages).RegisterRoutes(app)
	NewAuthHandler(cfg.AuthService, pages, cfg.SecureCookies, cfg.LoginRateLimit).RegisterRoutes(app)
	NewReviewHandler(cfg.ReviewService, cfg.Files, pages).RegisterRoutes(app)

	events := "disabled"
	if cfg.EventsEnabled {
		events = "connected"
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"rabbitmq": events,
		})
	})

	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(observability.MetricsHandler(cfg.Registry)))
	}

	return app
}
