package repos_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repos"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSeedData(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	n1, err := repos.NewProductRepo(db).Count(ctx)
	require.NoError(t, err)
	require.Positive(t, n1)

	users, err := repos.NewUserRepo(db).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, users)
}

func TestProductSearchFiltersAndSorts(t *testing.T) {
	db := openDB(t)
	r := repos.NewProductRepo(db)
	ctx := context.Background()

	got, err := r.Search(ctx, repos.ProductFilter{Q: "LAMP"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "brass-desk-lamp", got[0].Slug)

	got, err = r.Search(ctx, repos.ProductFilter{CategorySlug: "kitchen", Sort: repos.SortPriceDesc})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-kettle", got[0].ID)
	assert.Equal(t, "p-mug", got[1].ID)

	feat, err := r.Featured(ctx, 10)
	require.NoError(t, err)
	for _, p := range feat {
		assert.True(t, p.Featured, p.ID)
	}

	p, err := r.BySlug(ctx, "stoneware-mug")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("20")))
}

func TestCartUpsertAndScoping(t *testing.T) {
	db := openDB(t)
	r := repos.NewCartRepo(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, "u-alice", "p-mug", 2))
	require.NoError(t, r.Upsert(ctx, "u-alice", "p-mug", 5))
	lines, err := r.Lines(ctx, "u-alice")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, "Stoneware Mug", lines[0].Name)

	// bob cannot see or touch alice's line
	_, err = r.Line(ctx, "u-bob", lines[0].ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, r.Delete(ctx, "u-bob", lines[0].ID))
	_, err = r.Line(ctx, "u-alice", lines[0].ID)
	require.NoError(t, err)

	n, err := r.Clear(ctx, "u-alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStockDecrementIsConditional(t *testing.T) {
	db := openDB(t)
	r := repos.NewStockRepo(db)
	ctx := context.Background()

	require.NoError(t, r.Decrement(ctx, "p-lamp", 2))
	q, err := r.Qty(ctx, "p-lamp")
	require.NoError(t, err)
	assert.Equal(t, 1, q)

	err = r.Decrement(ctx, "p-lamp", 2)
	assert.ErrorIs(t, err, repos.ErrInsufficientStock)
	q, _ = r.Qty(ctx, "p-lamp")
	assert.Equal(t, 1, q, "failed decrement leaves stock untouched")

	assert.ErrorIs(t, r.Set(ctx, "nope", 3), sql.ErrNoRows)
}

func TestCouponRoundTripAndIncrement(t *testing.T) {
	db := openDB(t)
	r := repos.NewCouponRepo(db)
	ctx := context.Background()

	limit := 1
	exp := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	c := domain.Coupon{
		Code: "ONCE", DiscountType: domain.DiscountFlat,
		DiscountValue: decimal.NewFromInt(3), MinOrderAmount: decimal.Zero,
		MaxUses: &limit, ExpireAt: &exp, Active: true,
	}
	require.NoError(t, r.Create(ctx, &c))
	require.NotEmpty(t, c.ID)

	got, err := r.ByCode(ctx, "ONCE")
	require.NoError(t, err)
	require.NotNil(t, got.MaxUses)
	assert.Equal(t, 1, *got.MaxUses)
	require.NotNil(t, got.ExpireAt)
	assert.True(t, got.ExpireAt.Equal(exp))

	now := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.IncrementUsed(ctx, c.ID, now))
	err = r.IncrementUsed(ctx, c.ID, now)
	assert.True(t, errors.Is(err, repos.ErrCouponUnavailable))

	got, _ = r.ByID(ctx, c.ID)
	assert.Equal(t, 1, got.UsedCount)

	welcome, err := r.ByCode(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.Nil(t, welcome.MaxUses)
	assert.Nil(t, welcome.ExpireAt)

	require.NoError(t, r.Delete(ctx, c.ID))
	assert.ErrorIs(t, r.Delete(ctx, c.ID), sql.ErrNoRows)
}

func TestInTxRollsBack(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repos.InTx(ctx, db, func(tx *sqlx.Tx) error {
		if err := repos.NewStockRepo(db).WithTx(tx).Decrement(ctx, "p-mug", 5); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	q, err := repos.NewStockRepo(db).Qty(ctx, "p-mug")
	require.NoError(t, err)
	assert.Equal(t, 25, q)
}

func TestOrderCreateGetAndStats(t *testing.T) {
	db := openDB(t)
	r := repos.NewOrderRepo(db)
	ctx := context.Background()

	o := domain.Order{
		ID: "o-1", UserID: "u-alice", PaymentMethod: domain.PaymentCOD,
		Subtotal: decimal.RequireFromString("40"), Shipping: decimal.RequireFromString("5"),
		Discount: decimal.Zero, Total: decimal.RequireFromString("45"), Status: domain.OrderPending,
		ShippingAddress: domain.ShippingAddress{FullName: "Alice", Address: "1 Main St", City: "Oz", ZipCode: "123", Phone: "5550001111"},
	}
	require.NoError(t, r.Create(ctx, &o))
	require.NoError(t, r.InsertItem(ctx, domain.OrderItem{OrderID: "o-1", ProductID: "p-mug", Name: "Stoneware Mug", Quantity: 2, Price: decimal.RequireFromString("20")}))

	got, items, err := r.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.FullName)
	assert.Empty(t, got.CouponCode)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("45")))
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	list, err := r.ListLatest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice@storefront.test", list[0].CustomerEmail)
	assert.Equal(t, 1, list[0].ItemCount)

	st, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Orders)
	assert.True(t, st.Revenue.Equal(decimal.RequireFromString("45")))

	require.NoError(t, r.UpdateStatus(ctx, "o-1", domain.OrderCancelled))
	st, _ = r.Stats(ctx)
	assert.True(t, st.Revenue.IsZero())
	assert.ErrorIs(t, r.UpdateStatus(ctx, "o-x", domain.OrderShipped), sql.ErrNoRows)
}

func TestCouponIncrementUsedStopsAtExpiry(t *testing.T) {
	db := openDB(t)
	r := repos.NewCouponRepo(db)
	ctx := context.Background()

	exp := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	c := domain.Coupon{
		Code: "NOON", DiscountType: domain.DiscountFlat,
		DiscountValue: decimal.NewFromInt(2), MinOrderAmount: decimal.Zero,
		ExpireAt: &exp, Active: true,
	}
	require.NoError(t, r.Create(ctx, &c))

	require.NoError(t, r.IncrementUsed(ctx, c.ID, exp.Add(-time.Minute)))
	require.NoError(t, r.IncrementUsed(ctx, c.ID, exp), "still valid at the expiry instant")
	err := r.IncrementUsed(ctx, c.ID, exp.Add(time.Second))
	assert.ErrorIs(t, err, repos.ErrCouponUnavailable)

	got, err := r.ByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsedCount)
}
