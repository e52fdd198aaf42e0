package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
	"storefront/internal/http/handlers"
	applog "storefront/internal/log"
	"storefront/internal/repos"
	"storefront/internal/telemetry"
)

type testApp struct {
	app  *fiber.App
	db   *sqlx.DB
	deps *handlers.Deps
	csrf string
}

// newTestApp builds the production route table over an in-memory store,
// without the global rate limiter and access logger.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, nil)
}

func newTestAppWith(t *testing.T, tel *telemetry.Telemetry) *testApp {
	t.Helper()
	cfg := config.Config{DBDriver: "sqlite", DBDSN: ":memory:", MediaDir: "../../web/media"}
	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	require.NoError(t, err, "open db")
	t.Cleanup(func() { _ = db.Close() })

	deps := handlers.NewDeps(db, cfg, nil, tel)
	engine := html.New("../../web/templates", ".html")
	app := fiber.New(fiber.Config{Views: engine, ErrorHandler: handlers.ErrorHandler})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())
	app.Use(handlers.Attach(deps.Auth))
	app.Use(csrf.New(handlers.CSRFConfig(false)))
	app.Use(handlers.ExposeCSRF)
	handlers.Register(app, deps)

	ta := &testApp{app: app, db: db, deps: deps}
	resp := ta.do(t, http.MethodGet, "/login", "", nil)
	ta.csrf = cookieValue(resp, "csrf_")
	require.NotEmpty(t, ta.csrf, "csrf token missing")
	return ta
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// do sends a request as sid. A non-nil form is posted with the csrf token.
func (ta *testApp) do(t *testing.T, method, path, sid string, form url.Values) *http.Response {
	t.Helper()
	var body io.Reader
	if form != nil {
		form.Set("csrf", ta.csrf)
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if ta.csrf != "" {
		req.AddCookie(&http.Cookie{Name: "csrf_", Value: ta.csrf})
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// login binds a fresh session to a seeded user.
func (ta *testApp) login(t *testing.T, userID string) string {
	t.Helper()
	sid := uuid.NewString()
	require.NoError(t, repos.NewUserRepo(ta.db).BindSession(context.Background(), sid, userID))
	return sid
}

func (ta *testApp) addToCart(t *testing.T, sid, productID, qty string) {
	t.Helper()
	resp := ta.do(t, http.MethodPost, "/cart", sid, url.Values{"productId": {productID}, "qty": {qty}})
	require.Equal(t, http.StatusFound, resp.StatusCode, "add to cart")
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func checkoutForm(coupon string) url.Values {
	return url.Values{
		"fullName":      {"Alice Liddell"},
		"address":       {"12 Rabbit Hole Lane"},
		"city":          {"Oxford"},
		"zipCode":       {"OX1 1AA"},
		"phone":         {"0123456789"},
		"paymentMethod": {"cod"},
		"coupon":        {coupon},
	}
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
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

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
