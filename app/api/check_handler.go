package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

type CheckHandler struct {
	backend HealthChecker
}

func NewCheckHandler(backend HealthChecker) *CheckHandler {
	return &CheckHandler{backend: backend}
}

func (h CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"result": "ok"})
}

// HandleBackend reports whether the agent backend answers its health check.
func (h CheckHandler) HandleBackend(c *fiber.Ctx) error {
	if err := h.backend.Health(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}
