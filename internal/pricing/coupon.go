package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type CouponStatus string

const (
	CouponApplicable   CouponStatus = "APPLICABLE"
	CouponInactive     CouponStatus = "INACTIVE"
	CouponExpired      CouponStatus = "EXPIRED"
	CouponExhausted    CouponStatus = "EXHAUSTED"
	CouponBelowMinimum CouponStatus = "BELOW_MINIMUM"
)

func (s CouponStatus) Applicable() bool { return s == CouponApplicable }

// Message is the customer-facing explanation for a verdict.
func (s CouponStatus) Message() string {
	switch s {
	case CouponApplicable:
		return "Coupon applied."
	case CouponInactive:
		return "This coupon is not active."
	case CouponExpired:
		return "This coupon has expired."
	case CouponExhausted:
		return "This coupon has reached its usage limit."
	case CouponBelowMinimum:
		return "Your order does not meet this coupon's minimum amount."
	}
	return ""
}

// ValidateCoupon classifies c against subtotal at now. Checks run in a fixed
// order and the first failure wins.
func ValidateCoupon(c domain.Coupon, subtotal decimal.Decimal, now time.Time) CouponStatus {
	if !c.Active {
		return CouponInactive
	}
	if c.ExpireAt != nil && now.After(*c.ExpireAt) {
		return CouponExpired
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return CouponExhausted
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return CouponBelowMinimum
	}
	return CouponApplicable
}
