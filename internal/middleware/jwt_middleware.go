package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"katalog/internal/apperror"
	"katalog/internal/services"
)

const userLocalsKey = "user"

// Authenticator turns a bearer token into the stored account it names.
type Authenticator interface {
	Authenticate(ctx context.Context, tokenString string) (*services.Claims, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// The identity is stored in the request locals for CurrentUser.
func AuthRequired(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperror.NewAuthError("Not authorized, no token", nil)
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return apperror.NewAuthError("Not authorized, no token", nil)
		}

		claims, err := auth.Authenticate(c.UserContext(), strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}

		c.Locals(userLocalsKey, claims)
		return c.Next()
	}
}

// CurrentUser returns the identity stored by AuthRequired, or nil.
func CurrentUser(c *fiber.Ctx) *services.Claims {
	claims, _ := c.Locals(userLocalsKey).(*services.Claims)
	return claims
}
