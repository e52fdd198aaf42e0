package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/validate"
)

const shopPageSize = 12

type SearchHandler struct {
	Catalog *services.CatalogService
}

// Shop lists products filtered by q, category and featured, sorted by sort.
func (h *SearchHandler) Shop(c *fiber.Ctx) error {
	ctx := c.UserContext()
	cats, err := h.Catalog.ListCategories(ctx)
	if err != nil {
		log.Error(c, "shop.categories", err, nil)
		return oops(c, fiber.StatusInternalServerError, "Could not load results. Please retry.")
	}
	data := fiber.Map{"Categories": cats, "Sorts": []string{repos.SortNewest, repos.SortPriceAsc, repos.SortPriceDesc, repos.SortName}}
	bad := func(field, msg string) error {
		log.Security(c, "validation.fail", map[string]any{"field": field})
		data["Err"] = msg
		data["Products"] = nil
		data["Count"] = 0
		c.Status(fiber.StatusBadRequest)
		return render(c, "shop", data)
	}

	q := services.ShopQuery{PageSize: shopPageSize, Sort: c.Query("sort", repos.SortNewest)}
	if raw := c.Query("q"); strings.TrimSpace(raw) != "" {
		v, ok := validate.Q(raw)
		if !ok {
			return bad("q", "Enter a valid keyword (letters/numbers only)")
		}
		q.Q = v
	}
	if raw := c.Query("category"); strings.TrimSpace(raw) != "" {
		v, ok := validate.Slug(raw)
		if !ok {
			return bad("category", "Invalid category")
		}
		q.Category = v
	}
	q.Featured = c.Query("featured") == "1" || c.Query("featured") == "true"
	q.Page, _ = strconv.Atoi(c.Query("page", "1"))
	if q.Page < 1 {
		q.Page = 1
	}

	products, err := h.Catalog.Search(ctx, q)
	if err != nil {
		log.Error(c, "shop.search", err, nil)
		return oops(c, fiber.StatusInternalServerError, "Could not load results. Please retry.")
	}
	data["Query"] = q
	data["Products"] = products
	data["Count"] = len(products)
	if q.Page > 1 {
		data["PrevPage"] = q.Page - 1
	}
	if len(products) == shopPageSize {
		data["NextPage"] = q.Page + 1
	}
	return render(c, "shop", data)
}
