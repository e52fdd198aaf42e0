package handlers

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/config"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/telemetry"
)

type Deps struct {
	Auth             *services.AuthService
	AuthHandler      *AuthHandler
	CategoryHandler  *CategoryHandler
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	SearchHandler    *SearchHandler
	CartHandler      *CartHandler
	OrderHandler     *OrderHandler
	AdminHandler     *AdminHandler
}

// NewDeps wires repositories, services and handlers over one database.
// guard may be nil for the in-process checkout guard; tel may be nil when
// telemetry is disabled.
func NewDeps(db *sqlx.DB, cfg config.Config, guard services.CheckoutGuard, tel *telemetry.Telemetry) *Deps {
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	stockRepo := repos.NewStockRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	couponRepo := repos.NewCouponRepo(db)
	userRepo := repos.NewUserRepo(db)

	auth := &services.AuthService{Users: userRepo}
	catalogSvc := services.NewCatalogService(catRepo, prodRepo)
	stockSvc := services.NewStockService(stockRepo)
	cartSvc := services.NewCartService(cartRepo, prodRepo, couponRepo)
	orderSvc := services.NewOrderService(db, cartRepo, stockRepo, orderRepo, couponRepo, guard)

	return &Deps{
		Auth:             auth,
		AuthHandler:      &AuthHandler{Auth: auth, SecureCookies: cfg.SecureCookies},
		CategoryHandler:  &CategoryHandler{Catalog: catalogSvc},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{Stock: stockSvc},
		SearchHandler:    &SearchHandler{Catalog: catalogSvc},
		CartHandler:      &CartHandler{Cart: cartSvc},
		OrderHandler:     &OrderHandler{Cart: cartSvc, Order: orderSvc},
		AdminHandler: &AdminHandler{
			Dashboard: &services.DashboardService{Orders: orderRepo, Prods: prodRepo, Users: userRepo, Coupons: couponRepo},
			Orders:    orderSvc,
			Stock:     stockSvc,
			Coupons:   services.NewCouponService(couponRepo),
			Telemetry: tel,
		},
	}
}
