package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type InventoryHandler struct {
	Stock *services.StockService
}

// Check answers GET /api/v1/availability?productId=.
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.Query("productId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing or invalid productId"})
	}
	avail, err := h.Stock.CheckAvailability(c.UserContext(), productID)
	if errors.Is(err, services.ErrProductNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown product"})
	}
	if err != nil {
		log.Error(c, "availability.check", err, map[string]any{"product_id": productID})
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "availability is temporarily unavailable"})
	}
	return c.JSON(fiber.Map{"productId": productID, "status": avail.Status, "qty": avail.Qty})
}
