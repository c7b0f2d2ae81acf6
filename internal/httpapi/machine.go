package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ecw74/coffe-tech-demo/internal/status"
)

// StatusHandlers serves the machine status endpoint.
type StatusHandlers struct {
	Tracker *status.Tracker
}

// Register mounts the status route.
func (h *StatusHandlers) Register(app *fiber.App) {
	app.Get("/status", h.getStatus)
}

func (h *StatusHandlers) getStatus(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.Tracker.Current())
}
