package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/collabnotes/collabnotes/domain/user"
)

// UserContextKey is the key used to store user claims in the Fiber context.
const UserContextKey = "user"

// TokenValidator verifies a bearer credential into user claims. The auth
// service satisfies it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*user.Claims, error)
}

// AuthMiddleware creates a middleware that validates bearer tokens.
func AuthMiddleware(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required",
			})
		}

		claims, err := tokens.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired token",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, or from
// the token query parameter for WebSocket clients that cannot set headers.
func bearerToken(c *fiber.Ctx) string {
	if header := c.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimPrefix(header, "Bearer ")
		}
		return ""
	}
	return c.Query("token")
}

// claimsFrom returns the authenticated user's claims. Only valid behind
// AuthMiddleware.
func claimsFrom(c *fiber.Ctx) *user.Claims {
	claims, _ := c.Locals(UserContextKey).(*user.Claims)
	return claims
}
