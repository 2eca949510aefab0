package middleware

import (
	"ulasan/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the name of the cookie holding the signed session token.
const SessionCookie = "session"

const identityKey = "identity"

// IdentityResolver maps a session token to the stored identity, or nil.
type IdentityResolver interface {
	CurrentIdentity(token string) *models.User
}

// Session resolves the identity behind the session cookie and stores it in
// the request locals. Requests without a valid session continue anonymously.
func Session(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := c.Cookies(SessionCookie); token != "" {
			if user := resolver.CurrentIdentity(token); user != nil {
				c.Locals(identityKey, user)
			}
		}
		return c.Next()
	}
}

// Identity returns the identity stored by Session, or nil for anonymous
// requests.
func Identity(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(identityKey).(*models.User)
	return user
}

// RequireSession redirects anonymous requests to loginPath.
func RequireSession(loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if Identity(c) == nil {
			return c.Redirect(loginPath, fiber.StatusFound)
		}
		return c.Next()
	}
}
