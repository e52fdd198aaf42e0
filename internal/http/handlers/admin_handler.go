package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
	"storefront/internal/telemetry"
	"storefront/internal/validate"
)

type AdminHandler struct {
	Dashboard *services.DashboardService
	Orders    *services.OrderService
	Stock     *services.StockService
	Coupons   *services.CouponService
	Telemetry *telemetry.Telemetry
}

// GET /admin
func (h *AdminHandler) DashboardPage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	stats, err := h.Dashboard.Stats(ctx)
	if err != nil {
		applog.Error(c, "admin.dashboard.fail", err, nil)
		return oops(c, fiber.StatusInternalServerError, "Could not load the dashboard")
	}
	outcomes, err := h.Telemetry.CheckoutOutcomes(ctx)
	if err != nil {
		applog.Error(c, "admin.dashboard.outcomes", err, nil)
	}
	return render(c, "admin_dashboard", fiber.Map{"Stats": stats, "Outcomes": outcomes})
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.Orders.Latest(c.UserContext(), 100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return oops(c, fiber.StatusInternalServerError, "Could not load orders")
	}
	return render(c, "admin_orders", fiber.Map{"Orders": ords, "Statuses": domain.OrderStatuses})
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	status := strings.ToLower(strings.TrimSpace(c.FormValue("status")))
	if !ok || status == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing id or status")
	}
	err := h.Orders.UpdateStatus(c.UserContext(), id, status)
	switch {
	case errors.Is(err, services.ErrBadStatus):
		applog.Security(c, "validation.fail", map[string]any{"field": "status"})
		return c.Status(fiber.StatusBadRequest).SendString("unknown status")
	case errors.Is(err, services.ErrOrderNotFound):
		return oops(c, fiber.StatusNotFound, "Order not found")
	case err != nil:
		applog.Error(c, "admin.orders.update.fail", err, map[string]any{"order_id": id})
		return c.Status(fiber.StatusInternalServerError).SendString("could not update status")
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": status})
	return c.Redirect("/admin/orders")
}

// GET /admin/stock
func (h *AdminHandler) StockPage(c *fiber.Ctx) error {
	return h.showStock(c, fiber.StatusOK, "")
}

func (h *AdminHandler) showStock(c *fiber.Ctx, status int, msg string) error {
	rows, err := h.Stock.List(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.stock.list.fail", err, nil)
		return oops(c, fiber.StatusInternalServerError, "Could not load stock")
	}
	c.Status(status)
	return render(c, "admin_stock", fiber.Map{"Rows": rows, "Err": msg})
}

// POST /admin/stock
func (h *AdminHandler) UpdateStock(c *fiber.Ctx) error {
	pid, okID := validate.ID(c.FormValue("product_id"))
	qty, err := strconv.Atoi(strings.TrimSpace(c.FormValue("qty")))
	if !okID || err != nil {
		applog.Security(c, "validation.fail", map[string]any{"field": "stock"})
		return h.showStock(c, fiber.StatusBadRequest, "Enter a whole number of units")
	}
	err = h.Stock.SetStock(c.UserContext(), pid, qty)
	switch {
	case services.CodeOf(err) == services.CodeValidation:
		return h.showStock(c, fiber.StatusBadRequest, "Stock cannot be negative")
	case errors.Is(err, services.ErrProductNotFound):
		return h.showStock(c, fiber.StatusNotFound, "Unknown product")
	case err != nil:
		applog.Error(c, "admin.stock.save.fail", err, map[string]any{"product": pid, "qty": qty})
		return oops(c, fiber.StatusInternalServerError, "Could not save stock")
	}
	applog.Audit(c, "admin.stock.save", map[string]any{"product": pid, "qty": qty})
	return c.Redirect("/admin/stock")
}

func couponForm(c *fiber.Ctx) services.CouponInput {
	return services.CouponInput{
		Code:           c.FormValue("code"),
		DiscountType:   c.FormValue("discount_type"),
		DiscountValue:  c.FormValue("discount_value"),
		MinOrderAmount: c.FormValue("min_order_amount"),
		MaxUses:        c.FormValue("max_uses"),
		ExpireAt:       c.FormValue("expire_at"),
		Active:         c.FormValue("is_active") != "",
	}
}

// GET /admin/coupons
func (h *AdminHandler) CouponsPage(c *fiber.Ctx) error {
	return h.showCoupons(c, fiber.StatusOK, nil, nil)
}

func (h *AdminHandler) showCoupons(c *fiber.Ctx, status int, form *services.CouponInput, fields map[string]string) error {
	list, err := h.Coupons.List(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.coupons.list.fail", err, nil)
		return oops(c, fiber.StatusInternalServerError, "Could not load coupons")
	}
	if form == nil {
		form = &services.CouponInput{DiscountType: string(domain.DiscountPercentage), Active: true}
	}
	c.Status(status)
	return render(c, "admin_coupons", fiber.Map{"Coupons": list, "Form": form, "Fields": fields})
}

// couponResult maps a create/update error to a response. ok is true when
// err was nil.
func (h *AdminHandler) couponResult(c *fiber.Ctx, action string, in services.CouponInput, err error) (bool, error) {
	var ce *services.CheckoutError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &ce) && ce.Code == services.CodeValidation:
		applog.Security(c, "validation.fail", map[string]any{"fields": keys(ce.Fields)})
		return false, h.showCoupons(c, fiber.StatusBadRequest, &in, ce.Fields)
	case errors.Is(err, services.ErrCouponNotFound):
		return false, oops(c, fiber.StatusNotFound, "Coupon not found")
	}
	applog.Error(c, action, err, nil)
	return false, oops(c, fiber.StatusInternalServerError, "Could not save the coupon")
}

// POST /admin/coupons
func (h *AdminHandler) CreateCoupon(c *fiber.Ctx) error {
	in := couponForm(c)
	cp, err := h.Coupons.Create(c.UserContext(), in)
	if ok, resp := h.couponResult(c, "admin.coupons.create.fail", in, err); !ok {
		return resp
	}
	applog.Audit(c, "admin.coupons.create", map[string]any{"coupon_id": cp.ID, "code": cp.Code})
	return c.Redirect("/admin/coupons")
}

// POST /admin/coupons/:id
func (h *AdminHandler) UpdateCoupon(c *fiber.Ctx) error {
	id, okID := validate.ID(c.Params("id"))
	if !okID {
		return oops(c, fiber.StatusNotFound, "Coupon not found")
	}
	in := couponForm(c)
	cp, err := h.Coupons.Update(c.UserContext(), id, in)
	if ok, resp := h.couponResult(c, "admin.coupons.update.fail", in, err); !ok {
		return resp
	}
	applog.Audit(c, "admin.coupons.update", map[string]any{"coupon_id": cp.ID, "code": cp.Code})
	return c.Redirect("/admin/coupons")
}

// POST /admin/coupons/:id/delete
func (h *AdminHandler) DeleteCoupon(c *fiber.Ctx) error {
	id, okID := validate.ID(c.Params("id"))
	if !okID {
		return oops(c, fiber.StatusNotFound, "Coupon not found")
	}
	err := h.Coupons.Delete(c.UserContext(), id)
	if errors.Is(err, services.ErrCouponNotFound) {
		return oops(c, fiber.StatusNotFound, "Coupon not found")
	}
	if err != nil {
		applog.Error(c, "admin.coupons.delete.fail", err, map[string]any{"coupon_id": id})
		return oops(c, fiber.StatusInternalServerError, "Could not delete the coupon")
	}
	applog.Audit(c, "admin.coupons.delete", map[string]any{"coupon_id": id})
	return c.Redirect("/admin/coupons")
}
