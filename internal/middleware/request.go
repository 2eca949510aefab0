package middleware

import (
	"errors"
	"time"

	"ulasan/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// responseStatus is the status the client will see, including errors that
// are still on their way to the app's ErrorHandler.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func routePattern(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
		return r.Path
	}
	return c.Path()
}

// Metrics records request count and latency per route pattern.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		observability.ObserveHTTP(routePattern(c), c.Method(), responseStatus(c, err), time.Since(start))
		return err
	}
}

// Logger writes one structured line per request.
func Logger(l zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := responseStatus(c, err)

		event := l.Info()
		if status >= fiber.StatusInternalServerError {
			event = l.Error().Err(err)
		}
		event.
			Str("route", routePattern(c)).
			Str("method", c.Method()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("remote", c.IP()).
			Str("ua", c.Get(fiber.HeaderUserAgent)).
			Msg("http_request")
		return err
	}
}
