package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	slug, ok := validate.Slug(c.Params("slug"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return oops(c, fiber.StatusNotFound, "This item is no longer available")
	}
	p, err := h.Catalog.ProductBySlug(c.UserContext(), slug)
	if errors.Is(err, services.ErrProductNotFound) {
		return oops(c, fiber.StatusNotFound, "This item is no longer available")
	}
	if err != nil {
		log.Error(c, "product.load", err, map[string]any{"slug": slug})
		return oops(c, fiber.StatusInternalServerError, "Could not load this item. Please retry.")
	}
	return render(c, "product", fiber.Map{"P": p, "Availability": services.AvailabilityFor(p.Stock)})
}
