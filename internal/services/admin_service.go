package services

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront/internal/repos"
)

type DashboardStats struct {
	Revenue  decimal.Decimal
	Orders   int
	Products int
	Users    int
	Coupons  int
}

// DashboardService aggregates the admin landing page counters.
type DashboardService struct {
	Orders  *repos.OrderRepo
	Prods   *repos.ProductRepo
	Users   *repos.UserRepo
	Coupons *repos.CouponRepo
}

func (s *DashboardService) Stats(ctx context.Context) (DashboardStats, error) {
	var out DashboardStats
	st, err := s.Orders.Stats(ctx)
	if err != nil {
		return out, err
	}
	out.Revenue, out.Orders = st.Revenue, st.Orders
	if out.Products, err = s.Prods.Count(ctx); err != nil {
		return out, err
	}
	if out.Users, err = s.Users.Count(ctx); err != nil {
		return out, err
	}
	if out.Coupons, err = s.Coupons.Count(ctx); err != nil {
		return out, err
	}
	return out, nil
}
