// Package pricing derives cart totals and classifies coupons. Everything here
// is a pure function of its arguments.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

var (
	// FreeShippingThreshold is inclusive: a subtotal of exactly 50.00 ships free.
	FreeShippingThreshold = decimal.RequireFromString("50.00")
	FlatShippingFee       = decimal.RequireFromString("5.00")

	hundred = decimal.NewFromInt(100)
)

type Line struct {
	Price    decimal.Decimal
	Quantity int
}

type Quote struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	// Coupon is empty when no coupon was supplied.
	Coupon CouponStatus
}

// FromCart converts cart lines (live prices) into pricing lines.
func FromCart(lines []domain.CartLine) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, Line{Price: l.Price, Quantity: l.Quantity})
	}
	return out
}

func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Shipping is charged on the pre-discount subtotal.
func Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShippingFee
}

// Discount returns the coupon's reduction on subtotal, clamped to [0, subtotal].
// It does not check applicability; see ValidateCoupon.
func Discount(c domain.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case domain.DiscountPercentage:
		d = subtotal.Mul(c.DiscountValue).Div(hundred)
	case domain.DiscountFlat:
		d = decimal.Min(c.DiscountValue, subtotal)
	default:
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}

// Calculate prices lines with an optional coupon. An inapplicable coupon
// contributes no discount; its verdict is reported in Quote.Coupon.
func Calculate(lines []Line, coupon *domain.Coupon, now time.Time) Quote {
	q := Quote{Subtotal: Subtotal(lines), Discount: decimal.Zero}
	q.Shipping = Shipping(q.Subtotal)
	if coupon != nil {
		q.Coupon = ValidateCoupon(*coupon, q.Subtotal, now)
		if q.Coupon.Applicable() {
			q.Discount = Discount(*coupon, q.Subtotal)
		}
	}
	net := q.Subtotal.Sub(q.Discount)
	if net.IsNegative() {
		net = decimal.Zero
	}
	q.Total = net.Add(q.Shipping)
	return q
}

// FreeShippingGap is how much more the customer must add to ship free.
func (q Quote) FreeShippingGap() decimal.Decimal {
	if q.Shipping.IsZero() {
		return decimal.Zero
	}
	return FreeShippingThreshold.Sub(q.Subtotal)
}
