package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type OrderRepo struct{ db sqlx.ExtContext }

func NewOrderRepo(db sqlx.ExtContext) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) WithTx(tx *sqlx.Tx) *OrderRepo { return &OrderRepo{db: tx} }

const orderCols = `
    o.id, o.user_id, o.ship_full_name, o.ship_address, o.ship_city, o.ship_zip_code, o.ship_phone,
    o.payment_method, COALESCE(o.coupon_code,'') AS coupon_code,
    o.subtotal, o.shipping, o.discount, o.total_amount, o.status, COALESCE(o.created_at,'') AS created_at`

// OrderSummary is one row of the admin order list.
type OrderSummary struct {
	domain.Order
	CustomerEmail string `db:"customer_email"`
	ItemCount     int    `db:"item_count"`
}

// Stats feeds the admin dashboard.
type Stats struct {
	Orders  int             `db:"orders"`
	Revenue decimal.Decimal `db:"revenue"`
}

// Create inserts a new order header. Money is written with two decimals.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	if o.CreatedAt == "" {
		o.CreatedAt = stamp()
	}
	var coupon any
	if o.CouponCode != "" {
		coupon = o.CouponCode
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  INSERT INTO orders
	    (id, user_id, ship_full_name, ship_address, ship_city, ship_zip_code, ship_phone,
	     payment_method, coupon_code, subtotal, shipping, discount, total_amount, status, created_at)
	  VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`), o.ID, o.UserID, o.FullName, o.Address, o.City, o.ZipCode, o.Phone,
		o.PaymentMethod, coupon,
		o.Subtotal.StringFixed(2), o.Shipping.StringFixed(2), o.Discount.StringFixed(2), o.Total.StringFixed(2),
		o.Status, o.CreatedAt)
	return err
}

// InsertItem inserts a single line item.
func (r *OrderRepo) InsertItem(ctx context.Context, it domain.OrderItem) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  INSERT INTO order_items(order_id, product_id, name, quantity, price)
	  VALUES(?, ?, ?, ?, ?)
	`), it.OrderID, it.ProductID, it.Name, it.Quantity, it.Price.StringFixed(2))
	return err
}

// Get returns the header and its items; sql.ErrNoRows when absent.
func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, []domain.OrderItem, error) {
	var o domain.Order
	if err := sqlx.GetContext(ctx, r.db, &o, r.db.Rebind(`SELECT `+orderCols+` FROM orders o WHERE o.id = ?`), id); err != nil {
		return domain.Order{}, nil, err
	}
	items := []domain.OrderItem{}
	if err := sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(`
		SELECT order_id, product_id, name, quantity, price
		FROM order_items
		WHERE order_id = ?
		ORDER BY name
	`), id); err != nil {
		return domain.Order{}, nil, err
	}
	return o, items, nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(`
		SELECT `+orderCols+`
		FROM orders o
		WHERE o.user_id = ?
		ORDER BY o.created_at DESC, o.id DESC
	`), userID)
	return out, err
}

func (r *OrderRepo) ListLatest(ctx context.Context, limit int) ([]OrderSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []OrderSummary{}
	err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(`
		SELECT `+orderCols+`, u.email AS customer_email,
		       (SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id) AS item_count
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT ?
	`), limit)
	return out, err
}

// UpdateStatus sets status; sql.ErrNoRows when the order is unknown.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE orders SET status = ? WHERE id = ?`), status, id)
	if err != nil {
		return err
	}
	return oneRow(res)
}

// Stats counts orders and sums their totals. Cancelled orders are excluded
// from revenue.
func (r *OrderRepo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := sqlx.GetContext(ctx, r.db, &s, r.db.Rebind(`
		SELECT COUNT(*) AS orders,
		       COALESCE(SUM(CASE WHEN status <> ? THEN total_amount ELSE 0 END), 0) AS revenue
		FROM orders
	`), domain.OrderCancelled)
	return s, err
}
