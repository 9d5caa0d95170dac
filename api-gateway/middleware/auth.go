package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/salonos/payments/pkg/auth"
)

// AuthMiddleware validates JWT tokens and forwards the tenant identity
// downstream. Tokens without a tenant claim are rejected at the edge.
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals("tenant_id", claims.TenantID)
		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)

		// Identity headers for backend services
		c.Request().Header.Set("X-Tenant-ID", claims.TenantID)
		c.Request().Header.Set("X-User-ID", claims.UserID)
		c.Request().Header.Set("X-User-Role", claims.Role)

		return c.Next()
	}
}

// ManagerMiddleware restricts a route to owner/admin roles
func ManagerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		if role != auth.RoleOwner && role != auth.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Owner or admin role required",
			})
		}
		return c.Next()
	}
}
