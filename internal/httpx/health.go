package httpx

import "github.com/gofiber/fiber/v2"

// HealthHandler reports liveness.
func HealthHandler(c *fiber.Ctx) error {
	return OK(c, fiber.Map{"status": "ok"})
}
