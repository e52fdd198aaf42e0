package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	applog "storefront/internal/log"
)

// Register mounts every page and API route plus the 404 fallback, so it must
// be called last. Global middleware (csrf, helmet, request ids, Attach) is
// installed by the caller.
func Register(app *fiber.App, d *Deps) {
	app.Get("/", d.CategoryHandler.Home)
	app.Get("/shop", d.SearchHandler.Shop)
	app.Get("/product/:slug", d.ProductHandler.Detail)

	app.Get("/product", func(c *fiber.Ctx) error {
		return oops(c, fiber.StatusNotFound, "This item is no longer available")
	})

	api := app.Group("/api/v1", limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|api"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.api.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))
	api.Get("/availability", d.InventoryHandler.Check)
	api.Get("/cart/quote", d.CartHandler.Quote)

	user := RequireUser(d.Auth)
	app.Get("/cart", user, d.CartHandler.View)
	app.Post("/cart", user, d.CartHandler.Add)
	app.Post("/cart/:id/quantity", user, d.CartHandler.SetQuantity)
	app.Post("/cart/:id/delete", user, d.CartHandler.Remove)
	app.Get("/checkout", user, d.OrderHandler.Checkout)
	app.Post("/orders", d.OrderHandler.Place)
	app.Get("/orders", user, d.OrderHandler.History)
	app.Get("/order/:id", user, d.OrderHandler.View)

	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			c.Status(fiber.StatusTooManyRequests)
			return render(c, "login", fiber.Map{"Err": "Too many attempts. Try again later.", "Email": ""})
		},
	}), d.AuthHandler.Login)
	app.Post("/logout", d.AuthHandler.Logout)

	admin := app.Group("/admin", RequireAdmin(d.Auth))
	admin.Get("/", d.AdminHandler.DashboardPage)
	admin.Get("/orders", d.AdminHandler.OrdersPage)
	admin.Post("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)
	admin.Get("/stock", d.AdminHandler.StockPage)
	admin.Post("/stock", d.AdminHandler.UpdateStock)
	admin.Get("/coupons", d.AdminHandler.CouponsPage)
	admin.Post("/coupons", d.AdminHandler.CreateCoupon)
	admin.Post("/coupons/:id", d.AdminHandler.UpdateCoupon)
	admin.Post("/coupons/:id/delete", d.AdminHandler.DeleteCoupon)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	app.Use(func(c *fiber.Ctx) error {
		return oops(c, fiber.StatusNotFound, "Page not found")
	})
}

// ErrorHandler is the fiber-wide fallback. Internals are logged, never shown.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		status = fe.Code
		msg = "We could not process that request."
	}
	applog.Error(c, "server.error", err, nil)
	if rerr := c.Status(status).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(status).SendString(msg)
	}
	return nil
}
