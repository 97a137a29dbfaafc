// Package mw contains HTTP middleware: soft bearer authentication, device
// context resolution and rate limiting.
package mw

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/JunaYa/ferriskey/internal/auth"
	"github.com/JunaYa/ferriskey/internal/identity"
)

const identityKey = "identity"

// Auth attaches a resolved identity when a valid bearer token is present.
// It is soft: any missing header, malformed token or verification failure
// falls through to the next handler with no identity attached. Handlers that
// require authentication enforce it themselves.
func Auth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return c.Next()
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := identity.DecodeClaims(token)
		if err != nil {
			return c.Next()
		}
		ident, err := svc.AuthorizeRequest(c.Context(), claims, token)
		if err != nil {
			return c.Next()
		}
		c.Locals(identityKey, &ident)
		return c.Next()
	}
}

// IdentityFromCtx returns the bearer identity attached by Auth, if any.
func IdentityFromCtx(c *fiber.Ctx) (*identity.Identity, bool) {
	ident, ok := c.Locals(identityKey).(*identity.Identity)
	return ident, ok && ident != nil
}
