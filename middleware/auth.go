// middleware/auth.go
package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ServiceAuthMiddleware validates a Bearer token when GAMELOG_SERVICE_TOKEN is
// set. A personal deployment without the variable runs open.
func ServiceAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("GAMELOG_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Println("⚠️  GAMELOG_SERVICE_TOKEN not set — API is unauthenticated")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != expectedToken {
			log.Printf("❌ [AUTH] Invalid token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authentication token",
			})
		}
		return c.Next()
	}
}
