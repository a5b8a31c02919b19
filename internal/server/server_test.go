package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/and161185/topupbd/internal/config"
	"github.com/and161185/topupbd/internal/deps"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"
)

const panelServices = `[
	{"service":1,"name":"Page Likes","type":"Default","category":"Facebook Services","rate":"0.5417","min":"100","max":"5000","refill":true,"cancel":false},
	{"service":2,"name":"Views","type":"Default","category":"TikTok","rate":"0.02","min":"10","max":"100000","refill":false,"cancel":false}
]`

// newPanel fakes the provider API.
func newPanel(t *testing.T) *httptest.Server {
	t.Helper()

	var nextOrder int64 = 23500

	panel := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "panel-key", r.PostForm.Get("key"))

		switch r.PostForm.Get("action") {
		case "services":
			io.WriteString(w, panelServices)
		case "add":
			if strings.Contains(r.PostForm.Get("link"), "broke") {
				io.WriteString(w, `{"error":"Not enough funds on balance"}`)
				return
			}
			fmt.Fprintf(w, `{"order":%d}`, atomic.AddInt64(&nextOrder, 1))
		case "status":
			if r.PostForm.Get("order") == "23502" {
				io.WriteString(w, `{"error":"Incorrect order ID"}`)
				return
			}
			io.WriteString(w, `{"charge":"0.27","start_count":"0","status":"Completed","remains":"0","currency":"USD"}`)
		case "balance":
			io.WriteString(w, `{"balance":"10.00","currency":"USD"}`)
		case "maintenance":
			io.WriteString(w, `<html>down</html>`)
		default:
			io.WriteString(w, `{"error":"Incorrect request"}`)
		}
	}))
	t.Cleanup(panel.Close)
	return panel
}

func setup(t *testing.T) *httptest.Server {
	t.Helper()

	panel := newPanel(t)

	cfg := config.Defaults()
	cfg.Logger = zaptest.NewLogger(t).Sugar()
	cfg.ProviderURL = panel.URL
	cfg.ProviderKey = "panel-key"
	cfg.SecretKey = "test-secret"
	cfg.FundsDelay = 10 * time.Millisecond
	cfg.ProviderLimit = 5 * time.Second

	d, err := deps.NewDependencies(context.Background(), cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(NewServer(d, cfg).buildRouter())
	t.Cleanup(ts.Close)
	return ts
}

type visitor struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newVisitor(t *testing.T, ts *httptest.Server) *visitor {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &visitor{t: t, base: ts.URL, client: &http.Client{Jar: jar}}
}

func (v *visitor) do(method, path, body string) (int, gjson.Result) {
	v.t.Helper()

	req, err := http.NewRequest(method, v.base+path, strings.NewReader(body))
	require.NoError(v.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.client.Do(req)
	require.NoError(v.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(v.t, err)
	return resp.StatusCode, gjson.ParseBytes(data)
}

func requireDecimal(t *testing.T, want string, got gjson.Result) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(got.String())),
		"want %s, got %s", want, got.String())
}

func TestProxyEndpoint(t *testing.T) {
	ts := setup(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/proxy", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(ts.URL + "/api/proxy")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.JSONEq(t, `{"error":"Method not allowed"}`, string(body))

	v := newVisitor(t, ts)
	code, res := v.do(http.MethodPost, "/api/proxy", `{"action":"balance"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "10.00", res.Get("balance").String())

	// business errors are relayed verbatim
	code, res = v.do(http.MethodPost, "/api/proxy", `{"action":"refill","order":1}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Incorrect request", res.Get("error").String())

	code, res = v.do(http.MethodPost, "/api/proxy", `{"action":"maintenance"}`)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "Invalid response from provider API", res.Get("error").String())
}

func TestSessionStartsAsGuest(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	code, res := v.do(http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, res.Get("user.guest").Bool())
	require.Equal(t, "Guest User", res.Get("user.name").String())
	require.Equal(t, "user", res.Get("view").String())

	userID := res.Get("user.userId").String()
	require.Len(t, userID, 8)

	// the device cookie brings the visitor back to the same state
	_, res = v.do(http.MethodGet, "/api/session", "")
	require.Equal(t, userID, res.Get("user.userId").String())

	other := newVisitor(t, ts)
	_, res = other.do(http.MethodGet, "/api/session", "")
	require.NotEqual(t, userID, res.Get("user.userId").String())
}

func TestAuthFlow(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	_, res := v.do(http.MethodGet, "/api/session", "")
	guestID := res.Get("user.userId").String()

	code, _ := v.do(http.MethodPost, "/api/auth/signup", `{"email":"","password":""}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, res = v.do(http.MethodPost, "/api/auth/signup", `{"email":"rahim@example.com","password":"pa55word","fullName":"Rahim Uddin"}`)
	require.Equal(t, http.StatusOK, code)
	require.False(t, res.Get("user.guest").Bool())
	require.Equal(t, "Rahim Uddin", res.Get("user.name").String())
	memberID := res.Get("user.userId").String()

	code, _ = v.do(http.MethodPost, "/api/auth/signup", `{"email":"rahim@example.com","password":"pa55word"}`)
	require.Equal(t, http.StatusConflict, code)

	code, res = v.do(http.MethodPost, "/api/auth/signout", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, guestID, res.Get("user.userId").String())

	code, _ = v.do(http.MethodPost, "/api/auth/signin", `{"email":"rahim@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, code)

	code, res = v.do(http.MethodPost, "/api/auth/signin", `{"email":"rahim@example.com","password":"pa55word"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, memberID, res.Get("user.userId").String())
}

func TestOrderFlow(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	code, res := v.do(http.MethodGet, "/api/catalogue", "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, res.Get("categories").Array(), 2)
	require.Equal(t, "facebook", res.Get("categories.0.tag").String())
	require.Equal(t, "Rate: ৳65.00 per 1000", res.Get("categories.0.services.0.description.3").String())

	_, res = v.do(http.MethodGet, "/api/order", "")
	require.Equal(t, "selecting", res.Get("step").String())
	require.Equal(t, "Facebook Services", res.Get("category").String())

	_, res = v.do(http.MethodPut, "/api/order/form", `{"link":"https://facebook.com/page","quantity":"150"}`)
	requireDecimal(t, "9.7506", res.Get("charge"))

	// below the service minimum nothing happens
	v.do(http.MethodPut, "/api/order/form", `{"quantity":"50"}`)
	_, res = v.do(http.MethodPost, "/api/order/submit", "")
	require.Equal(t, "selecting", res.Get("step").String())

	v.do(http.MethodPut, "/api/order/form", `{"quantity":"150"}`)
	_, res = v.do(http.MethodPost, "/api/order/submit", "")
	require.Equal(t, "payment-pending", res.Get("step").String())

	code, res = v.do(http.MethodPost, "/api/order/verify", `{"transactionId":"8n4k2x"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "success", res.Get("step").String())
	require.Equal(t, "23501", res.Get("lastOrder.id").String())
	require.Equal(t, "8N4K2X", res.Get("lastOrder.transactionId").String())
	require.Equal(t, "pending", res.Get("lastOrder.status").String())

	_, res = v.do(http.MethodPost, "/api/order/reset", "")
	require.Equal(t, "selecting", res.Get("step").String())
	require.Empty(t, res.Get("link").String())

	_, res = v.do(http.MethodGet, "/api/orders", "")
	require.Len(t, res.Get("orders").Array(), 1)
	requireDecimal(t, "9.7506", res.Get("totalSpent"))

	code, res = v.do(http.MethodPost, "/api/orders/23501/refresh", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "completed", res.Get("status").String())

	code, _ = v.do(http.MethodPost, "/api/orders/999/refresh", "")
	require.Equal(t, http.StatusNotFound, code)

	code, res = v.do(http.MethodPost, "/api/orders/refresh", "")
	require.Equal(t, http.StatusOK, code)
	require.False(t, res.Get("failed").Exists())
	require.False(t, res.Get("error").Exists())

	code, _ = v.do(http.MethodDelete, "/api/orders/23501", "")
	require.Equal(t, http.StatusNoContent, code)

	_, res = v.do(http.MethodGet, "/api/orders", "")
	require.Empty(t, res.Get("orders").Array())
}

func (v *visitor) placeOrder(link string) string {
	v.t.Helper()

	v.do(http.MethodPut, "/api/order/form", `{"link":"`+link+`","quantity":"150"}`)
	v.do(http.MethodPost, "/api/order/submit", "")
	code, res := v.do(http.MethodPost, "/api/order/verify", `{"transactionId":"TRX1"}`)
	require.Equal(v.t, http.StatusOK, code)
	v.do(http.MethodPost, "/api/order/reset", "")
	return res.Get("lastOrder.id").String()
}

func TestRefreshAllReportsFailures(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	require.Equal(t, "23501", v.placeOrder("https://facebook.com/one"))
	require.Equal(t, "23502", v.placeOrder("https://facebook.com/two"))

	code, res := v.do(http.MethodPost, "/api/orders/refresh", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "23502", res.Get("failed.0").String())
	require.Len(t, res.Get("failed").Array(), 1)
	require.Equal(t, "Incorrect order ID", res.Get("error").String())

	// the failing order keeps its status, the other one is updated
	require.Equal(t, "23502", res.Get("orders.0.id").String())
	require.Equal(t, "pending", res.Get("orders.0.status").String())
	require.Equal(t, "completed", res.Get("orders.1.status").String())
}

func TestOrderVerifyProviderError(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	v.do(http.MethodPut, "/api/order/form", `{"link":"https://facebook.com/broke","quantity":"150"}`)
	v.do(http.MethodPost, "/api/order/submit", "")

	code, res := v.do(http.MethodPost, "/api/order/verify", `{"transactionId":"TRX1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, "Not enough funds on balance", res.Get("error").String())

	_, res = v.do(http.MethodGet, "/api/order", "")
	require.Equal(t, "payment-pending", res.Get("step").String())

	_, res = v.do(http.MethodGet, "/api/orders", "")
	require.Empty(t, res.Get("orders").Array())
}

func TestOversizedBodyRejected(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	body := `{"link":"` + strings.Repeat("a", maxRequestBody) + `"}`
	code, _ := v.do(http.MethodPut, "/api/order/form", body)
	require.Equal(t, http.StatusBadRequest, code)

	_, res := v.do(http.MethodGet, "/api/order", "")
	require.Empty(t, res.Get("link").String())
}

func TestOrderSelection(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	_, res := v.do(http.MethodPut, "/api/order/selection", `{"category":"TikTok"}`)
	require.Equal(t, "TikTok", res.Get("category").String())
	require.Equal(t, "2", res.Get("service.id").String())

	// unknown ids keep the selection
	code, res := v.do(http.MethodPut, "/api/order/selection", `{"category":"Nope","service":"77"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "TikTok", res.Get("category").String())

	code, _ = v.do(http.MethodPut, "/api/order/selection", `not json`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestFundsFlow(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	_, res := v.do(http.MethodGet, "/api/funds", "")
	require.Equal(t, "amount-entry", res.Get("step").String())
	require.Equal(t, "01792157184", res.Get("payTo").String())

	_, res = v.do(http.MethodPut, "/api/funds/method", `{"method":"bkash"}`)
	require.Equal(t, "01753567152", res.Get("payTo").String())

	code, _ := v.do(http.MethodPut, "/api/funds/method", `{"method":"paypal"}`)
	require.Equal(t, http.StatusBadRequest, code)

	v.do(http.MethodPut, "/api/funds/amount", `{"amount":"10"}`)
	code, res = v.do(http.MethodPost, "/api/funds/continue", "")
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, "Minimum amount is 20 BDT", res.Get("error").String())

	_, res = v.do(http.MethodPut, "/api/funds/amount", `{"amount":"500"}`)
	requireDecimal(t, "507", res.Get("total"))

	_, res = v.do(http.MethodPost, "/api/funds/continue", "")
	require.Equal(t, "verify-entry", res.Get("step").String())

	code, res = v.do(http.MethodPost, "/api/funds/submit", `{"transactionId":"bk77x"}`)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "amount-entry", res.Get("state.step").String())
	require.Empty(t, res.Get("state.amount").String())
	require.Len(t, res.Get("record.id").String(), 9)
	require.Equal(t, "BK77X", res.Get("record.transactionId").String())
	require.Equal(t, "pending", res.Get("record.status").String())
	require.Equal(t, "bkash", res.Get("record.method").String())

	_, res = v.do(http.MethodGet, "/api/funds/history", "")
	require.Len(t, res.Array(), 1)
}

func TestAdminView(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	code, _ := v.do(http.MethodGet, "/api/admin/stats", "")
	require.Equal(t, http.StatusForbidden, code)

	v.do(http.MethodPut, "/api/order/form", `{"link":"https://facebook.com/page","quantity":"1000"}`)
	v.do(http.MethodPost, "/api/order/submit", "")
	v.do(http.MethodPost, "/api/order/verify", `{"transactionId":"TRX1"}`)

	_, res := v.do(http.MethodPost, "/api/session/view", "")
	require.Equal(t, "admin", res.Get("view").String())

	code, res = v.do(http.MethodGet, "/api/admin/stats", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(1), res.Get("totalOrders").Int())
	require.Equal(t, int64(1), res.Get("pending").Int())
	require.Equal(t, int64(1), res.Get("users").Int())
	requireDecimal(t, "65.004", res.Get("revenue"))
	requireDecimal(t, "1200", res.Get("panelBalance"))

	code, res = v.do(http.MethodGet, "/api/admin/users?q=guest", "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, res.Array(), 1)

	_, res = v.do(http.MethodGet, "/api/admin/users?q=nobody", "")
	require.Empty(t, res.Array())

	code, _ = v.do(http.MethodDelete, "/api/admin/orders/23501", "")
	require.Equal(t, http.StatusNoContent, code)

	_, res = v.do(http.MethodPost, "/api/session/view", "")
	require.Equal(t, "user", res.Get("view").String())
}

func TestSupportAndMetrics(t *testing.T) {
	ts := setup(t)
	v := newVisitor(t, ts)

	code, res := v.do(http.MethodGet, "/api/support", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "https://t.me/motherpanel", res.Get("telegram").String())
	require.Equal(t, "01792157184", res.Get("numbers.nagad").String())

	v.do(http.MethodPost, "/api/proxy", `{"action":"balance"}`)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "topupbd_provider_requests_total")
}
