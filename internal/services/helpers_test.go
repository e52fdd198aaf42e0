package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/services"
	"storefront/internal/validate"
)

var (
	alice = services.Session{UserID: "u-alice", SID: "sid-alice"}
	bob   = services.Session{UserID: "u-bob", SID: "sid-bob"}
	fixed = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
)

type env struct {
	db      *sqlx.DB
	cart    *services.CartService
	orders  *services.OrderService
	coupons *services.CouponService
	stock   *repos.StockRepo
	couponR *repos.CouponRepo
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cartRepo := repos.NewCartRepo(db)
	prodRepo := repos.NewProductRepo(db)
	stockRepo := repos.NewStockRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	couponRepo := repos.NewCouponRepo(db)

	cart := services.NewCartService(cartRepo, prodRepo, couponRepo)
	cart.Now = func() time.Time { return fixed }
	orders := services.NewOrderService(db, cartRepo, stockRepo, orderRepo, couponRepo, services.NewMemoryGuard())
	orders.Now = func() time.Time { return fixed }

	return &env{
		db: db, cart: cart, orders: orders,
		coupons: services.NewCouponService(couponRepo),
		stock:   stockRepo, couponR: couponRepo,
	}
}

func goodAddress() validate.Address {
	return validate.Address{FullName: "Alice Liddell", Address: "12 Rabbit Hole", City: "Oxford", ZipCode: "OX1", Phone: "0123456789"}
}

func cod(coupon string) services.PlaceRequest {
	return services.PlaceRequest{Address: goodAddress(), PaymentMethod: "cod", CouponCode: coupon}
}

func (e *env) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}

func (e *env) qty(t *testing.T, productID string) int {
	t.Helper()
	q, err := e.stock.Qty(context.Background(), productID)
	require.NoError(t, err)
	return q
}

// brokenGuard stands in for an unreachable lock store.
type brokenGuard struct{}

func (brokenGuard) Acquire(context.Context, string) (func(), error) {
	return nil, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs redirects the application log while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	applog.SetOutput(buf)
	defer applog.SetOutput(os.Stdout)

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLogs(entries []logEntry, action string) []logEntry {
	var out []logEntry
	for _, e := range entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
