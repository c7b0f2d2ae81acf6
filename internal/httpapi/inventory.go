package httpapi

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ecw74/coffe-tech-demo/internal/ledger"
)

const lowStockThreshold = 2

// InventoryHandlers serves the /fill endpoints over the stock ledger.
type InventoryHandlers struct {
	Ledger *ledger.Ledger
	Log    *zap.Logger
}

// Register mounts the inventory routes.
func (h *InventoryHandlers) Register(app *fiber.App) {
	app.Get("/fill", h.getFill)
	app.Put("/fill", h.putFill)
	app.Delete("/fill", h.deleteFill)
}

// getFill returns the current stock counters.
func (h *InventoryHandlers) getFill(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.Ledger.Read())
}

// putFill additively refills the given ingredients. Unrecognized
// ingredients are ignored; a body with only unrecognized (or no) fields is
// rejected.
func (h *InventoryHandlers) putFill(c *fiber.Ctx) error {
	body, err := h.parseAmounts(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	deltas := make(ledger.Snapshot, len(body))
	for ingredient, qty := range body {
		if h.Ledger.Known(ingredient) {
			deltas[ingredient] = qty
		}
	}

	updated, err := h.Ledger.Refill(deltas)
	if err != nil {
		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: verr.Msg})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Internal server error"})
	}

	return c.Status(fiber.StatusOK).JSON(h.updateResponse(updated))
}

// deleteFill atomically deducts the given amounts; if any counter cannot
// cover its amount nothing is deducted.
func (h *InventoryHandlers) deleteFill(c *fiber.Ctx) error {
	body, err := h.parseAmounts(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	amounts := make([]ledger.Amount, 0, len(body))
	for ingredient, qty := range body {
		if h.Ledger.Known(ingredient) {
			amounts = append(amounts, ledger.Amount{Ingredient: ingredient, Quantity: qty})
		}
	}
	if len(amounts) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: ledger.ErrNoValues.Msg})
	}
	// Stable check order so the reported short ingredient is deterministic.
	sort.Slice(amounts, func(i, j int) bool { return amounts[i].Ingredient < amounts[j].Ingredient })

	updated, err := h.Ledger.TryDeduct(c.Context(), amounts)
	if err != nil {
		var insufficient *ledger.InsufficientStockError
		if errors.As(err, &insufficient) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":      insufficient.Ingredient + " underflow",
				"ingredient": insufficient.Ingredient,
				"required":   insufficient.Required,
				"available":  insufficient.Available,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "Internal server error"})
	}

	for ingredient, qty := range updated {
		if qty < lowStockThreshold {
			h.Log.Warn("Stock critically low",
				zap.String("ingredient", ingredient),
				zap.Int("remaining", qty),
			)
		}
	}

	return c.Status(fiber.StatusOK).JSON(h.updateResponse(updated))
}

// parseAmounts decodes an ingredient→quantity body and rejects empty
// bodies and negative values.
func (h *InventoryHandlers) parseAmounts(c *fiber.Ctx) (map[string]int, error) {
	body := map[string]int{}
	if err := c.BodyParser(&body); err != nil {
		return nil, ledger.ErrNoValues
	}
	if len(body) == 0 {
		return nil, ledger.ErrNoValues
	}
	for ingredient, qty := range body {
		if qty < 0 {
			return nil, &ledger.ValidationError{Msg: ingredient + " must be non-negative"}
		}
	}
	return body, nil
}

// updateResponse merges the confirmation message with the counters, e.g.
// {"message":"Inventory updated","beans":30,"milk":15}.
func (h *InventoryHandlers) updateResponse(snap ledger.Snapshot) fiber.Map {
	resp := fiber.Map{"message": "Inventory updated"}
	for ingredient, qty := range snap {
		resp[ingredient] = qty
	}
	return resp
}
