package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/validate"
)

type OrderHandler struct {
	Cart  *services.CartService
	Order *services.OrderService
}

// checkoutForm is what the checkout page posts back.
type checkoutForm struct {
	Address       validate.Address
	PaymentMethod string
	CouponCode    string
}

func readCheckoutForm(c *fiber.Ctx) checkoutForm {
	return checkoutForm{
		Address: validate.Address{
			FullName: c.FormValue("fullName"),
			Address:  c.FormValue("address"),
			City:     c.FormValue("city"),
			ZipCode:  c.FormValue("zipCode"),
			Phone:    c.FormValue("phone"),
		},
		PaymentMethod: c.FormValue("paymentMethod"),
		CouponCode:    c.FormValue("coupon"),
	}
}

func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	form := checkoutForm{PaymentMethod: domain.PaymentCOD, CouponCode: c.Query("coupon")}
	if u := currentUser(c); u != nil {
		form.Address.FullName = u.Name
	}
	return h.showCheckout(c, fiber.StatusOK, form, nil)
}

// showCheckout renders the checkout page with the live cart. A nil ce means
// no error banner.
func (h *OrderHandler) showCheckout(c *fiber.Ctx, status int, form checkoutForm, ce *services.CheckoutError) error {
	code, ok := validate.CouponCode(form.CouponCode)
	if !ok {
		code = ""
	}
	v, err := h.Cart.View(c.UserContext(), sessionOf(c), code)
	if services.CodeOf(err) == services.CodeUnauthenticated {
		return c.Redirect("/login")
	}
	if err != nil {
		applog.Error(c, "checkout.load", err, nil)
		return oops(c, fiber.StatusServiceUnavailable, "Could not load your cart")
	}
	if v.Empty() && ce == nil {
		return c.Redirect("/cart")
	}
	data := fiber.Map{"Cart": v, "Form": form, "PaymentCOD": domain.PaymentCOD, "ProductID": "", "Fields": map[string]string{}}
	if ce != nil {
		data["Err"] = ce.Message()
		data["Fields"] = ce.Fields
		data["Code"] = string(ce.Code)
		data["ProductID"] = ce.ProductID
	}
	c.Status(status)
	return render(c, "checkout", data)
}

func (h *OrderHandler) Place(c *fiber.Ctx) error {
	form := readCheckoutForm(c)
	rec, err := h.Order.Place(c.UserContext(), sessionOf(c), services.PlaceRequest{
		Address:       form.Address,
		PaymentMethod: form.PaymentMethod,
		CouponCode:    form.CouponCode,
	})
	if err == nil {
		applog.Audit(c, "order.place", map[string]any{
			"order_id": rec.Order.ID, "total": rec.Order.Total.StringFixed(2), "items": len(rec.Items),
		})
		return c.Redirect("/order/" + rec.Order.ID)
	}

	var ce *services.CheckoutError
	if !errors.As(err, &ce) {
		ce = &services.CheckoutError{Code: services.CodeBackendUnavailable, Err: err}
	}
	fields := map[string]any{"code": string(ce.Code)}
	if ce.ProductID != "" {
		fields["product_id"] = ce.ProductID
	}

	switch ce.Code {
	case services.CodeUnauthenticated:
		return c.Redirect("/login")
	case services.CodeEmptyCart:
		return c.Redirect("/cart")
	case services.CodeValidation:
		applog.Security(c, "validation.fail", map[string]any{"fields": keys(ce.Fields)})
		return h.showCheckout(c, fiber.StatusBadRequest, form, ce)
	case services.CodeCouponNotFound, services.CodeCouponInactive, services.CodeCouponExpired,
		services.CodeCouponExhausted, services.CodeCouponBelowMinimum, services.CodeUnsupportedPayment:
		applog.Info(c, "order.place.rejected", fields)
		return h.showCheckout(c, fiber.StatusBadRequest, form, ce)
	case services.CodeStockChanged, services.CodeInProgress:
		applog.Info(c, "order.place.conflict", fields)
		return h.showCheckout(c, fiber.StatusConflict, form, ce)
	}
	applog.Error(c, "order.place.fail", err, fields)
	return oops(c, fiber.StatusServiceUnavailable, ce.Message())
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (h *OrderHandler) View(c *fiber.Ctx) error {
	oid, ok := validate.ID(c.Params("id"))
	if !ok {
		return oops(c, fiber.StatusNotFound, "Order not found")
	}
	o, items, err := h.Order.Get(c.UserContext(), currentUser(c), oid)
	if errors.Is(err, services.ErrOrderNotFound) {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid})
		return oops(c, fiber.StatusNotFound, "Order not found")
	}
	if err != nil {
		applog.Error(c, "order.load", err, map[string]any{"order_id": oid})
		return oops(c, fiber.StatusServiceUnavailable, "Could not load this order. Please retry.")
	}
	return render(c, "order", fiber.Map{"Order": o, "Items": items})
}

// History lists orders for the current logged-in user.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Order.History(c.UserContext(), sessionOf(c))
	if services.CodeOf(err) == services.CodeUnauthenticated {
		return c.Redirect("/login")
	}
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return oops(c, fiber.StatusInternalServerError, "Could not load orders")
	}
	return render(c, "order_history", fiber.Map{"Orders": orders})
}
