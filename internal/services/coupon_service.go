package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

// CouponInput is the admin form as posted.
type CouponInput struct {
	Code           string
	DiscountType   string
	DiscountValue  string
	MinOrderAmount string
	MaxUses        string // empty = unlimited
	ExpireAt       string // yyyy-mm-dd, empty = never
	Active         bool
}

type CouponService struct {
	Coupons *repos.CouponRepo
}

func NewCouponService(coupons *repos.CouponRepo) *CouponService {
	return &CouponService{Coupons: coupons}
}

var hundred = decimal.NewFromInt(100)

// parse validates the form into a coupon, reporting every bad field.
func (in CouponInput) parse() (domain.Coupon, error) {
	fields := map[string]string{}
	c := domain.Coupon{Active: in.Active}

	code, ok := validate.CouponCode(in.Code)
	if !ok || code == "" {
		fields["code"] = "Use 3-32 letters, digits, - or _"
	}
	c.Code = code

	switch domain.DiscountType(strings.TrimSpace(in.DiscountType)) {
	case domain.DiscountPercentage:
		c.DiscountType = domain.DiscountPercentage
	case domain.DiscountFlat:
		c.DiscountType = domain.DiscountFlat
	default:
		fields["discount_type"] = "Choose percentage or flat"
	}

	v, ok := validate.Money(in.DiscountValue)
	switch {
	case !ok || !v.IsPositive():
		fields["discount_value"] = "Must be a positive amount"
	case c.DiscountType == domain.DiscountPercentage && v.GreaterThan(hundred):
		fields["discount_value"] = "A percentage cannot exceed 100"
	}
	c.DiscountValue = v

	c.MinOrderAmount = decimal.Zero
	if strings.TrimSpace(in.MinOrderAmount) != "" {
		m, ok := validate.Money(in.MinOrderAmount)
		if !ok {
			fields["min_order_amount"] = "Must be zero or more"
		}
		c.MinOrderAmount = m
	}

	if s := strings.TrimSpace(in.MaxUses); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			fields["max_uses"] = "Must be a whole number of at least 1"
		} else {
			c.MaxUses = &n
		}
	}

	exp, ok := validate.Date(in.ExpireAt)
	if !ok {
		fields["expire_at"] = "Use a date like 2030-12-31"
	}
	c.ExpireAt = exp

	if len(fields) > 0 {
		return domain.Coupon{}, &CheckoutError{Code: CodeValidation, Fields: fields}
	}
	return c, nil
}

func (s *CouponService) List(ctx context.Context) ([]domain.Coupon, error) {
	return s.Coupons.List(ctx)
}

func (s *CouponService) Get(ctx context.Context, id string) (domain.Coupon, error) {
	c, err := s.Coupons.ByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coupon{}, ErrCouponNotFound
	}
	return c, err
}

func (s *CouponService) Create(ctx context.Context, in CouponInput) (domain.Coupon, error) {
	c, err := in.parse()
	if err != nil {
		return domain.Coupon{}, err
	}
	if err := s.ensureUniqueCode(ctx, c.Code, ""); err != nil {
		return domain.Coupon{}, err
	}
	if err := s.Coupons.Create(ctx, &c); err != nil {
		return domain.Coupon{}, fmt.Errorf("create coupon: %w", err)
	}
	applog.Event(applog.LevelAudit, "coupon.create", nil, map[string]any{"coupon_id": c.ID, "code": c.Code})
	return c, nil
}

// Update rewrites a coupon's terms. Its usage count is preserved.
func (s *CouponService) Update(ctx context.Context, id string, in CouponInput) (domain.Coupon, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return domain.Coupon{}, err
	}
	c, err := in.parse()
	if err != nil {
		return domain.Coupon{}, err
	}
	if err := s.ensureUniqueCode(ctx, c.Code, id); err != nil {
		return domain.Coupon{}, err
	}
	c.ID, c.UsedCount, c.CreatedAt = cur.ID, cur.UsedCount, cur.CreatedAt
	if err := s.Coupons.Update(ctx, c); err != nil {
		return domain.Coupon{}, fmt.Errorf("update coupon: %w", err)
	}
	applog.Event(applog.LevelAudit, "coupon.update", nil, map[string]any{"coupon_id": c.ID, "code": c.Code})
	return c, nil
}

func (s *CouponService) Delete(ctx context.Context, id string) error {
	err := s.Coupons.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCouponNotFound
	}
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	applog.Event(applog.LevelAudit, "coupon.delete", nil, map[string]any{"coupon_id": id})
	return nil
}

func (s *CouponService) ensureUniqueCode(ctx context.Context, code, selfID string) error {
	other, err := s.Coupons.ByCode(ctx, code)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("lookup coupon code: %w", err)
	case other.ID == selfID:
		return nil
	}
	return &CheckoutError{Code: CodeValidation, Fields: map[string]string{"code": "A coupon with this code already exists"}}
}
