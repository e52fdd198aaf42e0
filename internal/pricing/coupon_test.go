package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

func TestValidateCoupon(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	base := func() domain.Coupon {
		return domain.Coupon{Code: "SAVE", DiscountType: domain.DiscountFlat, DiscountValue: d("5"),
			MinOrderAmount: d("20"), Active: true}
	}

	cases := []struct {
		name     string
		mutate   func(c *domain.Coupon)
		subtotal string
		want     pricing.CouponStatus
	}{
		{"applicable", func(c *domain.Coupon) {}, "20", pricing.CouponApplicable},
		{"inactive", func(c *domain.Coupon) { c.Active = false }, "100", pricing.CouponInactive},
		{"inactive wins over expired", func(c *domain.Coupon) { c.Active = false; c.ExpireAt = &past }, "100", pricing.CouponInactive},
		{"expired even when active", func(c *domain.Coupon) { c.ExpireAt = &past }, "100", pricing.CouponExpired},
		{"expiry instant is still valid", func(c *domain.Coupon) { at := now; c.ExpireAt = &at }, "100", pricing.CouponApplicable},
		{"not yet expired", func(c *domain.Coupon) { c.ExpireAt = &future }, "100", pricing.CouponApplicable},
		{"exhausted", func(c *domain.Coupon) { c.MaxUses = intp(3); c.UsedCount = 3 }, "100", pricing.CouponExhausted},
		{"exhausted regardless of minimum", func(c *domain.Coupon) { c.MaxUses = intp(3); c.UsedCount = 3 }, "1", pricing.CouponExhausted},
		{"expired wins over exhausted", func(c *domain.Coupon) { c.ExpireAt = &past; c.MaxUses = intp(1); c.UsedCount = 1 }, "100", pricing.CouponExpired},
		{"one use left", func(c *domain.Coupon) { c.MaxUses = intp(3); c.UsedCount = 2 }, "100", pricing.CouponApplicable},
		{"unlimited", func(c *domain.Coupon) { c.UsedCount = 1000 }, "100", pricing.CouponApplicable},
		{"below minimum", func(c *domain.Coupon) {}, "19.99", pricing.CouponBelowMinimum},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(&c)
			assert.Equal(t, tc.want, pricing.ValidateCoupon(c, d(tc.subtotal), now))
		})
	}
}

func TestValidateCouponDoesNotMutate(t *testing.T) {
	c := domain.Coupon{Active: true, MaxUses: intp(2), UsedCount: 1, MinOrderAmount: d("0")}
	_ = pricing.ValidateCoupon(c, d("10"), now)
	assert.Equal(t, 1, c.UsedCount)
}

func TestCouponStatusMessage(t *testing.T) {
	for _, s := range []pricing.CouponStatus{pricing.CouponApplicable, pricing.CouponInactive, pricing.CouponExpired,
		pricing.CouponExhausted, pricing.CouponBelowMinimum} {
		assert.NotEmpty(t, s.Message(), s)
	}
	assert.Empty(t, pricing.CouponStatus("").Message())
}
