package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	productID, ok := validate.ID(c.FormValue("productId"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "productId"})
		return oops(c, fiber.StatusBadRequest, "Please choose a product.")
	}
	qty := validate.Qty(c.FormValue("qty"))
	err := h.Cart.AddLine(c.UserContext(), sessionOf(c), productID, qty)
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return oops(c, fiber.StatusNotFound, "This item is no longer available")
	case services.CodeOf(err) == services.CodeUnauthenticated:
		return c.Redirect("/login")
	case err != nil:
		log.Error(c, "cart.add", err, map[string]any{"product_id": productID})
		return oops(c, fiber.StatusServiceUnavailable, "Your cart could not be updated. Please retry.")
	}
	log.Info(c, "cart.add", map[string]any{"product_id": productID, "qty": qty})
	return c.Redirect("/cart")
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	return h.show(c, fiber.StatusOK, nil)
}

// SetQuantity handles POST /cart/:id/quantity.
func (h *CartHandler) SetQuantity(c *fiber.Ctx) error {
	lineID, ok := validate.ID(c.Params("id"))
	if !ok {
		return oops(c, fiber.StatusNotFound, "That cart line no longer exists.")
	}
	qty, ok := validate.SetQty(c.FormValue("qty"))
	if !ok {
		return h.show(c, fiber.StatusBadRequest, map[string]string{"quantity": "Enter a whole number"})
	}
	_, err := h.Cart.SetQuantity(c.UserContext(), sessionOf(c), lineID, qty)
	var ce *services.CheckoutError
	switch {
	case errors.Is(err, services.ErrLineNotFound):
		return oops(c, fiber.StatusNotFound, "That cart line no longer exists.")
	case errors.As(err, &ce) && ce.Code == services.CodeValidation:
		return h.show(c, fiber.StatusBadRequest, ce.Fields)
	case errors.As(err, &ce) && ce.Code == services.CodeUnauthenticated:
		return c.Redirect("/login")
	case err != nil:
		log.Error(c, "cart.quantity", err, map[string]any{"line_id": lineID})
		return oops(c, fiber.StatusServiceUnavailable, "Your cart could not be updated. Please retry.")
	}
	return c.Redirect("/cart")
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	lineID, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Redirect("/cart")
	}
	if err := h.Cart.RemoveLine(c.UserContext(), sessionOf(c), lineID); err != nil {
		if services.CodeOf(err) == services.CodeUnauthenticated {
			return c.Redirect("/login")
		}
		log.Error(c, "cart.remove", err, map[string]any{"line_id": lineID})
		return oops(c, fiber.StatusServiceUnavailable, "Your cart could not be updated. Please retry.")
	}
	return c.Redirect("/cart")
}

// Quote answers GET /api/v1/cart/quote?coupon= with the priced cart.
func (h *CartHandler) Quote(c *fiber.Ctx) error {
	code, ok := validate.CouponCode(c.Query("coupon"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coupon code"})
	}
	v, err := h.Cart.View(c.UserContext(), sessionOf(c), code)
	if services.CodeOf(err) == services.CodeUnauthenticated {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "sign in required"})
	}
	if err != nil {
		log.Error(c, "cart.quote", err, nil)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "pricing is temporarily unavailable"})
	}
	q := v.Quote
	return c.JSON(fiber.Map{
		"items":           len(v.Lines),
		"subtotal":        q.Subtotal.StringFixed(2),
		"shipping":        q.Shipping.StringFixed(2),
		"discount":        q.Discount.StringFixed(2),
		"total":           q.Total.StringFixed(2),
		"freeShippingGap": q.FreeShippingGap().StringFixed(2),
		"coupon":          v.CouponCode,
		"couponError":     v.CouponError,
	})
}

func (h *CartHandler) show(c *fiber.Ctx, status int, fields map[string]string) error {
	data := fiber.Map{"Fields": fields}
	code, ok := validate.CouponCode(c.Query("coupon"))
	if !ok {
		data["CouponInput"] = c.Query("coupon")
		code = ""
	}
	v, err := h.Cart.View(c.UserContext(), sessionOf(c), code)
	if services.CodeOf(err) == services.CodeUnauthenticated {
		return c.Redirect("/login")
	}
	if err != nil {
		log.Error(c, "cart.view", err, nil)
		return oops(c, fiber.StatusServiceUnavailable, "Your cart could not be loaded. Please retry.")
	}
	if !ok {
		v.CouponError = "Coupon not found."
	}
	data["Cart"] = v
	data["Gap"] = v.Quote.FreeShippingGap()
	c.Status(status)
	return render(c, "cart", data)
}
