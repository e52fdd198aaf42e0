package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessDeniedLogs(t *testing.T) {
	ta := newTestApp(t)
	alice := ta.login(t, "u-alice")
	ta.addToCart(t, alice, "p-mug", "1")
	oid := placeOrder(t, ta, alice, checkoutForm(""))
	bob := ta.login(t, "u-bob")

	entries := captureLogs(t, func() {
		ta.do(t, http.MethodGet, "/order/"+oid, bob, nil)
	})
	e, ok := findLog(entries, "access.denied.order")
	require.True(t, ok, "expected access.denied.order log")
	assert.Equal(t, "warn", e.Level)
	assert.Equal(t, "u-bob", e.UserID)
	assert.Equal(t, oid, e.Fields["order_id"])

	entries = captureLogs(t, func() {
		ta.do(t, http.MethodGet, "/admin", bob, nil)
	})
	_, ok = findLog(entries, "access.denied.admin")
	assert.True(t, ok, "expected access.denied.admin log")

	entries = captureLogs(t, func() {
		ta.do(t, http.MethodGet, "/admin", "sid-nobody", nil)
	})
	_, ok = findLog(entries, "access.denied.admin")
	assert.True(t, ok, "unknown sessions are denied and logged too")
}

func TestCheckoutOutcomesAreLogged(t *testing.T) {
	ta := newTestApp(t)
	sid := ta.login(t, "u-alice")
	ta.addToCart(t, sid, "p-lamp", "3")

	entries := captureLogs(t, func() {
		placeOrder(t, ta, sid, checkoutForm(""))
	})
	placed, ok := findLog(entries, "order.placed")
	require.True(t, ok)
	assert.Equal(t, "audit", placed.Level)
	assert.Equal(t, "193.50", placed.Fields["total"])
	_, ok = findLog(entries, "checkout.transition")
	assert.True(t, ok, "state machine transitions are logged")

	ta.addToCart(t, sid, "p-mug", "1")
	ta.do(t, http.MethodPost, "/admin/stock", ta.login(t, "u-admin"), url.Values{"product_id": {"p-mug"}, "qty": {"0"}})
	entries = captureLogs(t, func() {
		resp := ta.do(t, http.MethodPost, "/orders", sid, checkoutForm(""))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
	conflict, ok := findLog(entries, "order.place.conflict")
	require.True(t, ok)
	assert.Equal(t, "STOCK_CHANGED", conflict.Fields["code"])
	assert.Equal(t, "p-mug", conflict.Fields["product_id"])
}
