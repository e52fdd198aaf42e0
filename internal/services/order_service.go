package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/domain"
	applog "storefront/internal/log"
	"storefront/internal/pricing"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

const instrumentation = "storefront/checkout"

type PlaceRequest struct {
	Address       validate.Address
	PaymentMethod string
	CouponCode    string
}

// Receipt is what a successful submission produced.
type Receipt struct {
	Order domain.Order
	Items []domain.OrderItem
	Quote pricing.Quote
}

type OrderService struct {
	DB      *sqlx.DB
	Carts   *repos.CartRepo
	Stock   *repos.StockRepo
	Orders  *repos.OrderRepo
	Coupons *repos.CouponRepo
	Guard   CheckoutGuard
	Now     func() time.Time
	RunTx   func(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error

	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

func NewOrderService(db *sqlx.DB, carts *repos.CartRepo, stock *repos.StockRepo, orders *repos.OrderRepo,
	coupons *repos.CouponRepo, guard CheckoutGuard) *OrderService {
	if guard == nil {
		guard = NewMemoryGuard()
	}
	outcomes, err := otel.Meter(instrumentation).Int64Counter("checkout.outcomes",
		metric.WithDescription("Order submissions by outcome code"))
	if err != nil {
		applog.Event(applog.LevelWarn, "telemetry.counter_failed", err, nil)
	}
	return &OrderService{
		DB: db, Carts: carts, Stock: stock, Orders: orders, Coupons: coupons, Guard: guard,
		Now:      time.Now,
		RunTx:    repos.InTx,
		tracer:   otel.Tracer(instrumentation),
		outcomes: outcomes,
	}
}

// Place turns the user's cart into a pending order. Preconditions are checked
// before touching the store; every write then happens in one transaction.
func (s *OrderService) Place(ctx context.Context, sess Session, req PlaceRequest) (rec Receipt, err error) {
	ctx, span := s.tracer.Start(ctx, "checkout.place", trace.WithAttributes(attribute.String("user.id", sess.UserID)))
	co := NewCheckout(sess.UserID)
	defer func() {
		outcome := "SUCCEEDED"
		if err != nil {
			code := CodeOf(err)
			outcome = string(code)
			if co.Fail(code) == nil && retryable(code) {
				_ = co.Edit() // FAILED -> EDITING is always legal
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetAttributes(attribute.String("order.id", rec.Order.ID))
		}
		if s.outcomes != nil {
			s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		}
		span.End()
	}()

	if err := co.Validate(); err != nil {
		return Receipt{}, backend(err)
	}
	if err := requireSession(sess); err != nil {
		return Receipt{}, err
	}
	addr, fields := validate.CheckAddress(req.Address)
	if len(fields) > 0 {
		return Receipt{}, &CheckoutError{Code: CodeValidation, Fields: fields}
	}
	if strings.ToLower(strings.TrimSpace(req.PaymentMethod)) != domain.PaymentCOD {
		return Receipt{}, fail(CodeUnsupportedPayment, nil)
	}
	couponCode, ok := validate.CouponCode(req.CouponCode)
	if !ok {
		return Receipt{}, fail(CodeCouponNotFound, nil)
	}

	release, err := s.Guard.Acquire(ctx, sess.UserID)
	if errors.Is(err, ErrGuardHeld) {
		return Receipt{}, fail(CodeInProgress, err)
	}
	if err != nil {
		return Receipt{}, backend(err)
	}
	defer release()

	lines, err := s.Carts.Lines(ctx, sess.UserID)
	if err != nil {
		return Receipt{}, backend(err)
	}
	if len(lines) == 0 {
		return Receipt{}, fail(CodeEmptyCart, nil)
	}
	for _, l := range lines {
		if l.Quantity > l.Stock {
			return Receipt{}, &CheckoutError{Code: CodeStockChanged, ProductID: l.ProductID,
				Err: fmt.Errorf("want %d, have %d", l.Quantity, l.Stock)}
		}
	}

	var coupon *domain.Coupon
	if couponCode != "" {
		c, err := s.Coupons.ByCode(ctx, couponCode)
		if errors.Is(err, sql.ErrNoRows) {
			return Receipt{}, fail(CodeCouponNotFound, nil)
		}
		if err != nil {
			return Receipt{}, backend(err)
		}
		coupon = &c
	}

	now := s.Now()
	quote := pricing.Calculate(pricing.FromCart(lines), coupon, now)
	if coupon != nil && !quote.Coupon.Applicable() {
		return Receipt{}, fail(couponFailure(quote.Coupon), nil)
	}

	if err := co.Submit(); err != nil {
		return Receipt{}, backend(err)
	}
	order := assemble(sess.UserID, addr, couponCode, quote, now)
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			OrderID: order.ID, ProductID: l.ProductID, Name: l.Name, Quantity: l.Quantity, Price: l.Price,
		})
	}

	err = s.RunTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		stock := s.Stock.WithTx(tx)
		for _, l := range lines {
			if err := stock.Decrement(ctx, l.ProductID, l.Quantity); err != nil {
				if errors.Is(err, repos.ErrInsufficientStock) {
					return &CheckoutError{Code: CodeStockChanged, ProductID: l.ProductID, Err: err}
				}
				return err
			}
		}
		orders := s.Orders.WithTx(tx)
		if err := orders.Create(ctx, &order); err != nil {
			return err
		}
		for _, it := range items {
			if err := orders.InsertItem(ctx, it); err != nil {
				return err
			}
		}
		if coupon != nil {
			coupons := s.Coupons.WithTx(tx)
			if err := coupons.IncrementUsed(ctx, coupon.ID, now); err != nil {
				if errors.Is(err, repos.ErrCouponUnavailable) {
					return fail(lostCoupon(ctx, coupons, coupon.ID, quote, now), err)
				}
				return err
			}
		}
		_, err := s.Carts.WithTx(tx).Clear(ctx, sess.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, repos.ErrRollback) {
			applog.Event(applog.LevelError, "order.partial_write", err, map[string]any{
				"order_id": order.ID, "user_id": sess.UserID,
			})
			return Receipt{}, fail(CodePartialWrite, err)
		}
		if CodeOf(err) != "" {
			return Receipt{}, err
		}
		return Receipt{}, backend(err)
	}

	if err := co.Succeed(); err != nil {
		// The order is committed; the bad transition is already logged.
		span.AddEvent("checkout.transition_illegal")
	}
	applog.Event(applog.LevelAudit, "order.placed", nil, map[string]any{
		"order_id": order.ID, "user_id": sess.UserID, "total": order.Total.StringFixed(2),
		"items": len(items), "coupon": couponCode,
	})
	return Receipt{Order: order, Items: items, Quote: quote}, nil
}

// lostCoupon explains why a coupon that passed validation could not be used
// at commit: it changed in between (deactivated, expired, used up or deleted).
func lostCoupon(ctx context.Context, coupons *repos.CouponRepo, id string, q pricing.Quote, now time.Time) Code {
	c, err := coupons.ByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return CodeCouponNotFound
	}
	if err == nil {
		if code := couponFailure(pricing.ValidateCoupon(c, q.Subtotal, now)); code != "" {
			return code
		}
	}
	return CodeCouponExhausted
}

// retryable failures send the customer back to edit the cart or form.
func retryable(code Code) bool {
	switch code {
	case CodeUnauthenticated, CodeBackendUnavailable, CodePartialWrite, "":
		return false
	}
	return true
}

// assemble builds the order header. Money is rounded to cents here and the
// total is recomputed from the rounded discount so the row always adds up.
func assemble(userID string, addr validate.Address, couponCode string, q pricing.Quote, now time.Time) domain.Order {
	discount := q.Discount.Round(2)
	net := q.Subtotal.Sub(discount)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return domain.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		PaymentMethod: domain.PaymentCOD,
		CouponCode:    couponCode,
		Subtotal:      q.Subtotal.Round(2),
		Shipping:      q.Shipping.Round(2),
		Discount:      discount,
		Total:         net.Add(q.Shipping).Round(2),
		Status:        domain.OrderPending,
		CreatedAt:     repos.Timestamp(now),
		ShippingAddress: domain.ShippingAddress{
			FullName: addr.FullName, Address: addr.Address, City: addr.City, ZipCode: addr.ZipCode, Phone: addr.Phone,
		},
	}
}

// Get returns an order the viewer may see: their own, or any for admins.
func (s *OrderService) Get(ctx context.Context, viewer *domain.User, id string) (domain.Order, []domain.OrderItem, error) {
	o, items, err := s.Orders.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, nil, ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, nil, err
	}
	if viewer == nil || (o.UserID != viewer.ID && viewer.Role != domain.RoleAdmin) {
		return domain.Order{}, nil, ErrOrderNotFound
	}
	return o, items, nil
}

// History lists the session user's orders, newest first.
func (s *OrderService) History(ctx context.Context, sess Session) ([]domain.Order, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.Orders.ListByUser(ctx, sess.UserID)
}

func (s *OrderService) Latest(ctx context.Context, limit int) ([]repos.OrderSummary, error) {
	return s.Orders.ListLatest(ctx, limit)
}

// UpdateStatus is admin-only; the checkout flow never changes status.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) error {
	if !slices.Contains(domain.OrderStatuses, status) {
		return ErrBadStatus
	}
	err := s.Orders.UpdateStatus(ctx, id, status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	applog.Event(applog.LevelAudit, "order.status", nil, map[string]any{"order_id": id, "status": status})
	return nil
}
