package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Slug      string `db:"slug"`
	CreatedAt string `db:"created_at"`
}

type Product struct {
	ID          string          `db:"id"`
	CategoryID  string          `db:"category_id"` // empty when uncategorised
	Name        string          `db:"name"`
	Slug        string          `db:"slug"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Stock       int             `db:"stock"`
	Featured    bool            `db:"is_featured"`
	ImagesJSON  string          `db:"images_json"`
	CreatedAt   string          `db:"created_at"`
}

// CartLine is one (product, quantity) pair in a user's cart. Product fields
// are joined from the live product row, never cached on the line.
type CartLine struct {
	ID        string          `db:"id"`
	UserID    string          `db:"user_id"`
	ProductID string          `db:"product_id"`
	Quantity  int             `db:"quantity"`
	Name      string          `db:"name"`
	Slug      string          `db:"slug"`
	Price     decimal.Decimal `db:"price"`
	Stock     int             `db:"stock"`
}

// LineTotal is price * quantity at the live price.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

type Coupon struct {
	ID             string
	Code           string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxUses        *int // nil = unlimited
	UsedCount      int
	ExpireAt       *time.Time
	Active         bool
	CreatedAt      string
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}
