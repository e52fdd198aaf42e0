package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/pricing"
	"storefront/internal/repos"
)

type CartService struct {
	Carts   *repos.CartRepo
	Prods   *repos.ProductRepo
	Coupons *repos.CouponRepo
	Now     func() time.Time
}

func NewCartService(carts *repos.CartRepo, prods *repos.ProductRepo, coupons *repos.CouponRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods, Coupons: coupons, Now: time.Now}
}

// AddLine adds qty of a product, merging with an existing line. The result is
// capped at the live stock; an out-of-stock product leaves the cart unchanged.
func (s *CartService) AddLine(ctx context.Context, sess Session, productID string, qty int) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if qty < 1 {
		qty = 1
	}
	p, err := s.Prods.Get(ctx, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return backend(err)
	}
	if p.Stock == 0 {
		applog.Event(applog.LevelInfo, "cart.add.out_of_stock", nil, map[string]any{"user_id": sess.UserID, "product_id": productID})
		return nil
	}

	existing, err := s.Carts.ByProduct(ctx, sess.UserID, productID)
	switch {
	case err == nil:
		qty += existing.Quantity
	case errors.Is(err, sql.ErrNoRows):
	default:
		return backend(err)
	}
	if qty > p.Stock {
		qty = p.Stock
	}
	if err := s.Carts.Upsert(ctx, sess.UserID, productID, qty); err != nil {
		return backend(err)
	}
	return nil
}

// SetQuantity overwrites a line's quantity, clamped to [1, live stock], and
// returns the stored value. Quantities below 1 are rejected; use RemoveLine.
func (s *CartService) SetQuantity(ctx context.Context, sess Session, lineID string, qty int) (int, error) {
	if err := requireSession(sess); err != nil {
		return 0, err
	}
	if qty < 1 {
		return 0, &CheckoutError{Code: CodeValidation, Fields: map[string]string{"quantity": "Quantity must be at least 1"}}
	}
	line, err := s.Carts.Line(ctx, sess.UserID, lineID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrLineNotFound
	}
	if err != nil {
		return 0, backend(err)
	}
	if qty > line.Stock {
		qty = line.Stock
	}
	// Stock can be 0 here; the line is kept at 1 and checkout reports it.
	if qty < 1 {
		qty = 1
	}
	if err := s.Carts.SetQuantity(ctx, sess.UserID, lineID, qty); err != nil {
		return 0, backend(err)
	}
	return qty, nil
}

func (s *CartService) RemoveLine(ctx context.Context, sess Session, lineID string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if err := s.Carts.Delete(ctx, sess.UserID, lineID); err != nil {
		return backend(err)
	}
	return nil
}

// Total is the live subtotal of the cart.
func (s *CartService) Total(ctx context.Context, sess Session) (decimal.Decimal, error) {
	if err := requireSession(sess); err != nil {
		return decimal.Zero, err
	}
	lines, err := s.Carts.Lines(ctx, sess.UserID)
	if err != nil {
		return decimal.Zero, backend(err)
	}
	return pricing.Subtotal(pricing.FromCart(lines)), nil
}

func (s *CartService) Clear(ctx context.Context, sess Session) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if _, err := s.Carts.Clear(ctx, sess.UserID); err != nil {
		return backend(err)
	}
	return nil
}

type CartView struct {
	Lines      []domain.CartLine
	Quote      pricing.Quote
	CouponCode string
	// CouponError explains why a supplied code gives no discount.
	CouponError string
	// Short lists lines whose quantity exceeds the live stock.
	Short map[string]bool
}

func (v CartView) Empty() bool { return len(v.Lines) == 0 }

// View prices the cart, optionally with a coupon code. An unknown or
// inapplicable code is reported in CouponError, not as an error.
func (s *CartService) View(ctx context.Context, sess Session, couponCode string) (CartView, error) {
	if err := requireSession(sess); err != nil {
		return CartView{}, err
	}
	lines, err := s.Carts.Lines(ctx, sess.UserID)
	if err != nil {
		return CartView{}, backend(err)
	}
	v := CartView{Lines: lines, CouponCode: couponCode, Short: map[string]bool{}}
	for _, l := range lines {
		if l.Quantity > l.Stock {
			v.Short[l.ID] = true
		}
	}

	var coupon *domain.Coupon
	if couponCode != "" {
		c, err := s.Coupons.ByCode(ctx, couponCode)
		switch {
		case err == nil:
			coupon = &c
		case errors.Is(err, sql.ErrNoRows):
			v.CouponError = "Coupon not found."
		default:
			return CartView{}, backend(err)
		}
	}
	v.Quote = pricing.Calculate(pricing.FromCart(lines), coupon, s.Now())
	if coupon != nil && !v.Quote.Coupon.Applicable() {
		v.CouponError = v.Quote.Coupon.Message()
	}
	return v, nil
}
