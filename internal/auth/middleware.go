package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const localsKey = "claims"

// Middleware validates the bearer token and stores the claims in the
// request context. Websocket upgrades may carry the token as a query
// parameter instead, since browsers cannot set headers on socket requests.
func Middleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization"})
		}
		claims, err := ParseToken(secret, tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals(localsKey, claims)
		return c.Next()
	}
}

// RequireAdmin rejects callers whose validated role is not admin.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := FromCtx(c)
		if claims == nil || !claims.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		return c.Next()
	}
}

// FromCtx returns the claims stored by Middleware, or nil.
func FromCtx(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(localsKey).(*Claims)
	return claims
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
