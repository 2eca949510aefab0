package handlers

import (
	"time"

	"ulasan/internal/middleware"
	"ulasan/internal/views"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"
)

// FlashCookie names the cookie holding the flash session id.
const FlashCookie = "flash"

const (
	flashKey        = "flashes"
	flashExpiration = 10 * time.Minute
)

// Pages renders templates with the current identity and carries flash
// messages across a redirect in a Fiber session.
type Pages struct {
	store *session.Store
}

// NewPages creates a Pages backed by an in-memory session store.
func NewPages(secureCookie bool) *Pages {
	store := session.New(session.Config{
		Expiration:        flashExpiration,
		KeyLookup:         "cookie:" + FlashCookie,
		CookiePath:        "/",
		CookieSecure:      secureCookie,
		CookieHTTPOnly:    true,
		CookieSameSite:    fiber.CookieSameSiteLaxMode,
		CookieSessionOnly: true,
	})
	store.RegisterType([]views.Flash{})
	return &Pages{store: store}
}

// Render fills in the identity and pending flashes and renders page name.
func (p *Pages) Render(c *fiber.Ctx, name string, page views.Page) error {
	page.Identity = middleware.Identity(c)
	page.Flashes = p.popFlashes(c)
	return c.Render(name, page)
}

// Redirect queues a flash message and redirects to path to.
func (p *Pages) Redirect(c *fiber.Ctx, to, category, message string) error {
	if err := p.addFlash(c, views.Flash{Category: category, Message: message}); err != nil {
		log.Error().Err(err).Str("path", to).Msg("error saving flash")
	}
	return c.Redirect(to, fiber.StatusFound)
}

func (p *Pages) addFlash(c *fiber.Ctx, flash views.Flash) error {
	sess, err := p.store.Get(c)
	if err != nil {
		return err
	}
	pending, _ := sess.Get(flashKey).([]views.Flash)
	sess.Set(flashKey, append(pending, flash))
	return sess.Save()
}

// popFlashes returns the queued messages and ends the flash session.
func (p *Pages) popFlashes(c *fiber.Ctx) []views.Flash {
	if c.Cookies(FlashCookie) == "" {
		return nil
	}
	sess, err := p.store.Get(c)
	if err != nil {
		log.Warn().Err(err).Msg("error loading flash session")
		return nil
	}
	flashes, _ := sess.Get(flashKey).([]views.Flash)
	if err := sess.Destroy(); err != nil {
		log.Warn().Err(err).Msg("error clearing flash session")
	}
	return flashes
}

func expireCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
