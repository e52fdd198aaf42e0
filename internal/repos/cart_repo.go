package repos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type CartRepo struct{ db sqlx.ExtContext }

func NewCartRepo(db sqlx.ExtContext) *CartRepo { return &CartRepo{db: db} }

// WithTx returns a repo bound to tx.
func (r *CartRepo) WithTx(tx *sqlx.Tx) *CartRepo { return &CartRepo{db: tx} }

const lineCols = `
    cl.id, cl.user_id, cl.product_id, cl.quantity,
    p.name, p.slug, p.price, p.stock`

// Lines returns the user's cart joined with the live product row, oldest first.
func (r *CartRepo) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	out := []domain.CartLine{}
	err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(`
	  SELECT `+lineCols+`
	  FROM cart_lines cl JOIN products p ON p.id = cl.product_id
	  WHERE cl.user_id = ?
	  ORDER BY cl.created_at, cl.id
	`), userID)
	return out, err
}

// Line returns one line owned by userID, or sql.ErrNoRows.
func (r *CartRepo) Line(ctx context.Context, userID, lineID string) (domain.CartLine, error) {
	var l domain.CartLine
	err := sqlx.GetContext(ctx, r.db, &l, r.db.Rebind(`
	  SELECT `+lineCols+`
	  FROM cart_lines cl JOIN products p ON p.id = cl.product_id
	  WHERE cl.user_id = ? AND cl.id = ?
	`), userID, lineID)
	return l, err
}

// ByProduct returns the user's line for productID, or sql.ErrNoRows.
func (r *CartRepo) ByProduct(ctx context.Context, userID, productID string) (domain.CartLine, error) {
	var l domain.CartLine
	err := sqlx.GetContext(ctx, r.db, &l, r.db.Rebind(`
	  SELECT `+lineCols+`
	  FROM cart_lines cl JOIN products p ON p.id = cl.product_id
	  WHERE cl.user_id = ? AND cl.product_id = ?
	`), userID, productID)
	return l, err
}

// Upsert writes the absolute quantity for (user, product).
func (r *CartRepo) Upsert(ctx context.Context, userID, productID string, qty int) error {
	now := stamp()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO cart_lines(id,user_id,product_id,quantity,created_at,updated_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(user_id,product_id) DO UPDATE
		SET quantity = excluded.quantity, updated_at = excluded.updated_at
	`), uuid.NewString(), userID, productID, qty, now, now)
	return err
}

func (r *CartRepo) SetQuantity(ctx context.Context, userID, lineID string, qty int) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE cart_lines SET quantity = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`), qty, stamp(), userID, lineID)
	return err
}

func (r *CartRepo) Delete(ctx context.Context, userID, lineID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM cart_lines WHERE user_id = ? AND id = ?`), userID, lineID)
	return err
}

// Clear removes every line of the user and reports how many went.
func (r *CartRepo) Clear(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM cart_lines WHERE user_id = ?`), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
