package domain

import "github.com/shopspring/decimal"

const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"

	// PaymentCOD is cash on delivery, the only accepted settlement.
	PaymentCOD = "cod"
)

// OrderStatuses lists the states an admin may move an order into.
var OrderStatuses = []string{OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled}

// ShippingAddress is snapshotted onto the order row.
type ShippingAddress struct {
	FullName string `db:"ship_full_name"`
	Address  string `db:"ship_address"`
	City     string `db:"ship_city"`
	ZipCode  string `db:"ship_zip_code"`
	Phone    string `db:"ship_phone"`
}

type Order struct {
	ID            string          `db:"id"`
	UserID        string          `db:"user_id"`
	PaymentMethod string          `db:"payment_method"`
	CouponCode    string          `db:"coupon_code"`
	Subtotal      decimal.Decimal `db:"subtotal"`
	Shipping      decimal.Decimal `db:"shipping"`
	Discount      decimal.Decimal `db:"discount"`
	Total         decimal.Decimal `db:"total_amount"`
	Status        string          `db:"status"`
	CreatedAt     string          `db:"created_at"`
	ShippingAddress
}

type OrderItem struct {
	OrderID   string          `db:"order_id"`
	ProductID string          `db:"product_id"`
	Name      string          `db:"name"`
	Quantity  int             `db:"quantity"`
	Price     decimal.Decimal `db:"price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
