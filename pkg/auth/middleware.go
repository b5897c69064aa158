package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	tokenHeader = "Authorization"
	tokenPrefix = "Bearer "

	// ClaimsKey is the fiber locals key the validated claims live under.
	ClaimsKey = "user_claims"
)

// Middleware returns a fiber handler that validates the bearer token
// and stores the claims in the request locals.
func Middleware(signer *Signer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(tokenHeader)
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}
		if !strings.HasPrefix(header, tokenPrefix) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "malformed authorization header"})
		}

		claims, err := signer.ValidateToken(strings.TrimPrefix(header, tokenPrefix))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// ClaimsFromCtx retrieves the validated claims stored by Middleware.
func ClaimsFromCtx(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(ClaimsKey).(*Claims)
	return claims, ok
}
