package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ecw74/coffe-tech-demo/internal/order"
	"github.com/ecw74/coffe-tech-demo/internal/recipe"
)

// OrderHandlers serves order intake and queue inspection.
type OrderHandlers struct {
	Intake *order.Intake
	Log    *zap.Logger
}

type orderRequest struct {
	Type string `json:"type"`
}

type orderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

type queueLengthResponse struct {
	PendingCoffeeOrders int64 `json:"pending_coffee_orders"`
}

// Register mounts the order routes.
func (h *OrderHandlers) Register(app *fiber.App) {
	app.Post("/order", h.postOrder)
	app.Get("/orders/queue-length", h.getQueueLength)
}

// postOrder accepts a drink order and enqueues it. 202 means queued, not
// prepared; fulfillment outcome is only visible via GET /status.
func (h *OrderHandlers) postOrder(c *fiber.Ctx) error {
	var req orderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	msg, err := h.Intake.Submit(c.Context(), req.Type)
	if err != nil {
		if errors.Is(err, recipe.ErrUnknownDrink) {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
				Error: "This is a coffee-only establishment ☕",
			})
		}
		h.Log.Error("Order publish failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Internal server error"})
	}

	return c.Status(fiber.StatusAccepted).JSON(orderResponse{
		Message: "Order received",
		OrderID: msg.OrderID,
	})
}

// getQueueLength reports the best-effort number of pending orders.
func (h *OrderHandlers) getQueueLength(c *fiber.Ctx) error {
	depth, err := h.Intake.QueueDepth(c.Context())
	if err != nil {
		h.Log.Error("Queue length lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Internal server error"})
	}
	return c.Status(fiber.StatusOK).JSON(queueLengthResponse{PendingCoffeeOrders: depth})
}
