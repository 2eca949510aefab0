package middleware_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ulasan/internal/middleware"
	"ulasan/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]*models.User

func (r staticResolver) CurrentIdentity(token string) *models.User {
	return r[token]
}

func newTestApp(logs io.Writer) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Logger(zerolog.New(logs)))
	app.Use(middleware.Metrics())
	app.Use(middleware.Session(staticResolver{
		"alice-token": {ID: "1", Username: "alice", Role: models.RoleUser},
	}))

	app.Get("/whoami", func(c *fiber.Ctx) error {
		if user := middleware.Identity(c); user != nil {
			return c.SendString(user.Username)
		}
		return c.SendString("anonymous")
	})
	app.Get("/private", middleware.RequireSession("/login"), func(c *fiber.Ctx) error {
		return c.SendString("secret")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "boom")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestSession(t *testing.T) {
	app := newTestApp(io.Discard)

	assert.Equal(t, "alice", body(t, get(t, app, "/whoami", "alice-token")))
	assert.Equal(t, "anonymous", body(t, get(t, app, "/whoami", "")))
	assert.Equal(t, "anonymous", body(t, get(t, app, "/whoami", "forged")))
}

func TestRequireSession(t *testing.T) {
	app := newTestApp(io.Discard)

	resp := get(t, app, "/private", "")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))

	resp = get(t, app, "/private", "alice-token")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "secret", body(t, resp))
}

func TestLogger(t *testing.T) {
	var logs bytes.Buffer
	app := newTestApp(&logs)

	resp := get(t, app, "/boom", "")
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Contains(t, logs.String(), `"route":"/boom"`)
	assert.Contains(t, logs.String(), `"status":418`)
	assert.Contains(t, logs.String(), `"message":"http_request"`)
}
