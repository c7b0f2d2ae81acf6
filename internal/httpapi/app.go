// Package httpapi exposes the REST surfaces of the three services.
package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp builds a Fiber app with the shared middleware chain.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(logger.New())
	app.Use(recover.New())
	return app
}

type errorResponse struct {
	Error string `json:"error"`
}
