package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrInsufficientStock is returned by Decrement when the row no longer has
// enough units.
var ErrInsufficientStock = errors.New("insufficient stock")

type StockRepo struct{ db sqlx.ExtContext }

func NewStockRepo(db sqlx.ExtContext) *StockRepo { return &StockRepo{db: db} }

func (r *StockRepo) WithTx(tx *sqlx.Tx) *StockRepo { return &StockRepo{db: tx} }

// Row used by admin stock pages
type StockRow struct {
	ProductID string `db:"product_id"`
	Name      string `db:"name"`
	Slug      string `db:"slug"`
	Stock     int    `db:"stock"`
}

// ListAll returns every product's stock (for /admin/stock)
func (r *StockRepo) ListAll(ctx context.Context) ([]StockRow, error) {
	rows := []StockRow{}
	err := sqlx.SelectContext(ctx, r.db, &rows, `
		SELECT id AS product_id, name, slug, stock
		FROM products
		ORDER BY name
	`)
	return rows, err
}

// Qty returns current stock for a product.
// If no row exists, it returns sql.ErrNoRows from sqlx.Get.
func (r *StockRepo) Qty(ctx context.Context, productID string) (int, error) {
	var qty int
	err := sqlx.GetContext(ctx, r.db, &qty, r.db.Rebind(`SELECT stock FROM products WHERE id = ?`), productID)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// Decrement atomically subtracts "by" units if enough stock exists.
// Returns ErrInsufficientStock otherwise.
func (r *StockRepo) Decrement(ctx context.Context, productID string, by int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE products
		SET stock = stock - ?
		WHERE id = ? AND stock >= ?
	`), by, productID, by)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w for %s", ErrInsufficientStock, productID)
	}
	return nil
}

// Set overwrites the stock level; sql.ErrNoRows when the product is unknown.
func (r *StockRepo) Set(ctx context.Context, productID string, qty int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE products SET stock = ? WHERE id = ?`), qty, productID)
	if err != nil {
		return err
	}
	return oneRow(res)
}
