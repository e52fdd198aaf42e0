package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// ErrCouponUnavailable is returned by IncrementUsed when the coupon is
// inactive, expired or its last use has already been taken.
var ErrCouponUnavailable = errors.New("coupon unavailable")

type CouponRepo struct{ db sqlx.ExtContext }

func NewCouponRepo(db sqlx.ExtContext) *CouponRepo { return &CouponRepo{db: db} }

func (r *CouponRepo) WithTx(tx *sqlx.Tx) *CouponRepo { return &CouponRepo{db: tx} }

type couponRow struct {
	ID             string          `db:"id"`
	Code           string          `db:"code"`
	DiscountType   string          `db:"discount_type"`
	DiscountValue  decimal.Decimal `db:"discount_value"`
	MinOrderAmount decimal.Decimal `db:"min_order_amount"`
	MaxUses        sql.NullInt64   `db:"max_uses"`
	UsedCount      int             `db:"used_count"`
	ExpireAt       sql.NullString  `db:"expire_at"`
	Active         bool            `db:"is_active"`
	CreatedAt      string          `db:"created_at"`
}

const couponCols = `id, code, discount_type, discount_value, min_order_amount, max_uses,
    used_count, expire_at, is_active, COALESCE(created_at,'') AS created_at`

func (row couponRow) toDomain() (domain.Coupon, error) {
	c := domain.Coupon{
		ID:             row.ID,
		Code:           row.Code,
		DiscountType:   domain.DiscountType(row.DiscountType),
		DiscountValue:  row.DiscountValue,
		MinOrderAmount: row.MinOrderAmount,
		UsedCount:      row.UsedCount,
		Active:         row.Active,
		CreatedAt:      row.CreatedAt,
	}
	if row.MaxUses.Valid {
		n := int(row.MaxUses.Int64)
		c.MaxUses = &n
	}
	if row.ExpireAt.Valid && row.ExpireAt.String != "" {
		t, err := time.Parse(time.RFC3339, row.ExpireAt.String)
		if err != nil {
			return domain.Coupon{}, fmt.Errorf("coupon %s: bad expire_at %q: %w", row.Code, row.ExpireAt.String, err)
		}
		c.ExpireAt = &t
	}
	return c, nil
}

func couponArgs(c domain.Coupon) (maxUses, expireAt any) {
	if c.MaxUses != nil {
		maxUses = *c.MaxUses
	}
	if c.ExpireAt != nil {
		expireAt = c.ExpireAt.UTC().Format(time.RFC3339)
	}
	return maxUses, expireAt
}

// ByCode looks a coupon up by its upper-case code; sql.ErrNoRows if absent.
func (r *CouponRepo) ByCode(ctx context.Context, code string) (domain.Coupon, error) {
	var row couponRow
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(`SELECT `+couponCols+` FROM coupons WHERE code = ?`), code); err != nil {
		return domain.Coupon{}, err
	}
	return row.toDomain()
}

func (r *CouponRepo) ByID(ctx context.Context, id string) (domain.Coupon, error) {
	var row couponRow
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(`SELECT `+couponCols+` FROM coupons WHERE id = ?`), id); err != nil {
		return domain.Coupon{}, err
	}
	return row.toDomain()
}

// List returns all coupons, newest first.
func (r *CouponRepo) List(ctx context.Context) ([]domain.Coupon, error) {
	var rows []couponRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, `SELECT `+couponCols+` FROM coupons ORDER BY created_at DESC, code`); err != nil {
		return nil, err
	}
	out := make([]domain.Coupon, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Create inserts c, filling ID and CreatedAt.
func (r *CouponRepo) Create(ctx context.Context, c *domain.Coupon) error {
	c.ID = uuid.NewString()
	c.CreatedAt = stamp()
	maxUses, expireAt := couponArgs(*c)
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO coupons(id,code,discount_type,discount_value,min_order_amount,max_uses,used_count,expire_at,is_active,created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)
	`), c.ID, c.Code, string(c.DiscountType), c.DiscountValue, c.MinOrderAmount, maxUses, c.UsedCount, expireAt, c.Active, c.CreatedAt)
	return err
}

// Update rewrites the editable fields. used_count is left alone.
func (r *CouponRepo) Update(ctx context.Context, c domain.Coupon) error {
	maxUses, expireAt := couponArgs(c)
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE coupons
		SET code = ?, discount_type = ?, discount_value = ?, min_order_amount = ?,
		    max_uses = ?, expire_at = ?, is_active = ?
		WHERE id = ?
	`), c.Code, string(c.DiscountType), c.DiscountValue, c.MinOrderAmount, maxUses, expireAt, c.Active, c.ID)
	if err != nil {
		return err
	}
	return oneRow(res)
}

func (r *CouponRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM coupons WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return oneRow(res)
}

// IncrementUsed takes one use of the coupon, only while it is active, not
// expired at now and below max_uses. Otherwise ErrCouponUnavailable.
func (r *CouponRepo) IncrementUsed(ctx context.Context, id string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE id = ? AND is_active = ?
		  AND (max_uses IS NULL OR used_count < max_uses)
		  AND (expire_at IS NULL OR expire_at = '' OR expire_at >= ?)
	`), id, true, now.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrCouponUnavailable, id)
	}
	return nil
}

func (r *CouponRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(*) FROM coupons`)
	return n, err
}
