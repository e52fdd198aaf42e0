package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/log"
	"storefront/internal/services"
)

const featuredOnHome = 8

type CategoryHandler struct {
	Catalog *services.CatalogService
}

// Home shows featured products and the category list.
func (h *CategoryHandler) Home(c *fiber.Ctx) error {
	ctx := c.UserContext()
	cats, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		log.Error(c, "home.categories", err, nil)
		return oops(c, fiber.StatusInternalServerError, "Could not load the store. Please retry.")
	}
	featured, err := h.Catalog.Featured(ctx, featuredOnHome)
	if err != nil {
		log.Error(c, "home.featured", err, nil)
		return oops(c, fiber.StatusInternalServerError, "Could not load the store. Please retry.")
	}
	return render(c, "home", fiber.Map{"Categories": cats, "Featured": featured})
}
