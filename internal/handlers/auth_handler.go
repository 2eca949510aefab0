package handlers

import (
	"errors"
	"time"

	"ulasan/internal/middleware"
	"ulasan/internal/models"
	"ulasan/internal/observability"
	"ulasan/internal/services"
	"ulasan/internal/views"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles the login, logout and registration pages.
type AuthHandler struct {
	authService  *services.AuthService
	pages        *Pages
	validate     *validator.Validate
	secureCookie bool
	rateLimit    int // POSTs per minute per client and route, 0 disables
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, pages *Pages, secureCookie bool, rateLimit int) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		pages:        pages,
		validate:     validator.New(),
		secureCookie: secureCookie,
		rateLimit:    rateLimit,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/login", h.ShowLogin)
	router.Post("/login", h.limiter("login", "Login"), h.HandleLogin)
	router.Get("/logout", h.HandleLogout)
	router.Get("/register", h.ShowRegister)
	router.Post("/register", h.limiter("register", "Register"), h.HandleRegister)
}

// limiter throttles one route; every call keeps its own counters.
func (h *AuthHandler) limiter(page, title string) fiber.Handler {
	if h.rateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        h.rateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			log.Warn().Str("ip", c.IP()).Str("path", c.Path()).Msg("auth rate limit reached")
			c.Status(fiber.StatusTooManyRequests)
			return h.pages.Render(c, page, views.Page{Title: title, Error: msgTooManyAttempts})
		},
	})
}

// CredentialsForm is the body of the login and register forms.
type CredentialsForm struct {
	Username string `form:"username" validate:"required,max=100"`
	Password string `form:"password" validate:"required"`
}

func (h *AuthHandler) parseCredentials(c *fiber.Ctx) (CredentialsForm, error) {
	var form CredentialsForm
	if err := c.BodyParser(&form); err != nil {
		return form, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return form, services.ErrMissingField
		}
		return form, err
	}
	return form, nil
}

// ShowLogin renders the login form.
func (h *AuthHandler) ShowLogin(c *fiber.Ctx) error {
	return h.pages.Render(c, "login", views.Page{Title: "Login"})
}

// HandleLogin checks the credentials and starts a session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	form, err := h.parseCredentials(c)
	if err != nil {
		if errors.Is(err, services.ErrMissingField) {
			observability.ObserveLogin("invalid")
			return h.pages.Render(c, "login", views.Page{Title: "Login", Error: msgMissingField, Username: form.Username})
		}
		return err
	}

	token, user, err := h.authService.LoginUser(form.Username, form.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			observability.ObserveLogin("invalid")
			log.Info().Str("username", form.Username).Str("ip", c.IP()).Msg("login failed")
			return h.pages.Render(c, "login", views.Page{Title: "Login", Error: msgBadCredentials, Username: form.Username})
		}
		observability.ObserveLogin("error")
		return err
	}

	observability.ObserveLogin("ok")
	log.Info().Str("username", user.Username).Str("role", user.Role).Msg("user logged in")

	// No Expires: the cookie ends with the browser session.
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect("/ulasan", fiber.StatusFound)
}

// HandleLogout ends the session. It is safe to call without one.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	expireCookie(c, middleware.SessionCookie)
	return c.Redirect("/", fiber.StatusFound)
}

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(c *fiber.Ctx) error {
	return h.pages.Render(c, "register", views.Page{Title: "Register"})
}

// HandleRegister creates a new user and sends them to the login page.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	form, err := h.parseCredentials(c)
	if err != nil {
		if errors.Is(err, services.ErrMissingField) {
			return h.pages.Render(c, "register", views.Page{Title: "Register", Error: msgMissingField, Username: form.Username})
		}
		return err
	}

	user := &models.User{Username: form.Username, Password: form.Password}
	if err := h.authService.RegisterUser(user); err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			return h.pages.Render(c, "register", views.Page{Title: "Register", Error: msgUsernameTaken, Username: form.Username})
		case errors.Is(err, services.ErrMissingField):
			return h.pages.Render(c, "register", views.Page{Title: "Register", Error: msgMissingField, Username: form.Username})
		}
		return err
	}

	log.Info().Str("username", user.Username).Msg("user registered")
	return c.Redirect("/login", fiber.StatusFound)
}
