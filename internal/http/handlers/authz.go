package handlers

import (
	"github.com/gofiber/fiber/v2"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/services"
)

// Attach resolves the sid cookie to a user and stores it in Locals for the
// rest of the chain. Anonymous requests pass through untouched.
func Attach(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				c.Locals("user", u)
				c.Locals("user_id", u.ID)
			}
		}
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

// sessionOf is the explicit session handed to cart and checkout calls.
func sessionOf(c *fiber.Ctx) services.Session {
	s := services.Session{SID: c.Cookies("sid")}
	if u := currentUser(c); u != nil {
		s.UserID = u.ID
	}
	return s
}

func lookup(c *fiber.Ctx, auth *services.AuthService) *domain.User {
	if u := currentUser(c); u != nil {
		return u
	}
	sid := c.Cookies("sid")
	if sid == "" {
		return nil
	}
	u, err := auth.CurrentUser(c.UserContext(), sid)
	if err != nil || u == nil {
		return nil
	}
	c.Locals("user", u)
	c.Locals("user_id", u.ID)
	return u
}

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Cookies("sid") == "" {
			return c.Redirect("/login")
		}
		u := lookup(c, auth)
		if u == nil || u.Role != domain.RoleAdmin {
			applog.Security(c, "access.denied.admin", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
		}
		return c.Next()
	}
}

// RequireUser enforces that a user is logged in; otherwise redirect to login.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if lookup(c, auth) == nil {
			return c.Redirect("/login")
		}
		return c.Next()
	}
}
