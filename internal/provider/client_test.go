package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, "secret", time.Second, zaptest.NewLogger(t).Sugar())
}

func TestCallSendsKeyActionAndParamsInOrder(t *testing.T) {
	var got string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Call(context.Background(), "add", []Param{
		{Key: "service", Value: "12"},
		{Key: "link", Value: "https://fb.com/x?a=1"},
	})
	require.NoError(t, err)
	require.Equal(t, "key=secret&action=add&service=12&link=https%3A%2F%2Ffb.com%2Fx%3Fa%3D1", got)
}

func TestBalance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balance":"12.34","currency":"USD"}`))
	})

	balance, err := client.Balance(context.Background())
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("12.34")))
}

func TestServicesParsesStringAndNumberFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"service":1,"name":"Likes","type":"Default","category":"Facebook Services","rate":"0.50","min":"100","max":"5000","refill":true,"cancel":false},
			{"service":2,"name":"Views","type":"Default","category":"TikTok","rate":0.1,"min":10,"max":100000,"refill":false,"cancel":true}
		]`))
	})

	services, err := client.Services(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)

	require.Equal(t, int64(1), services[0].ID)
	require.Equal(t, "0.50", services[0].Rate)
	require.Equal(t, 100, services[0].Min)
	require.Equal(t, 5000, services[0].Max)
	require.True(t, services[0].Refill)

	require.Equal(t, "0.1", services[1].Rate)
	require.Equal(t, 10, services[1].Min)
	require.True(t, services[1].Cancel)
}

func TestServicesRejectsNonArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"services":"maintenance"}`))
	})

	_, err := client.Services(context.Background())
	require.ErrorIs(t, err, errs.ErrUnexpectedPayload)
}

func TestServicesProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
	})

	_, err := client.Services(context.Background())
	var perr *errs.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "Invalid API key", perr.Message)
}

func TestAddOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "add", r.PostForm.Get("action"))
		require.Equal(t, "7", r.PostForm.Get("service"))
		require.Equal(t, "150", r.PostForm.Get("quantity"))
		_, _ = w.Write([]byte(`{"order":23501}`))
	})

	id, err := client.AddOrder(context.Background(), "7", "https://fb.com/page", 150)
	require.NoError(t, err)
	require.Equal(t, "23501", id)
}

func TestAddOrderWithoutOrderField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.AddOrder(context.Background(), "7", "https://fb.com/page", 150)
	var perr *errs.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "Unknown error", perr.Message)
}

func TestAddOrderPrefersOrderOverError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Duplicate link","order":23502}`))
	})

	id, err := client.AddOrder(context.Background(), "7", "https://fb.com/page", 150)
	require.NoError(t, err)
	require.Equal(t, "23502", id)
}

func TestEmptyErrorBecomesUnknownError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":""}`))
	})

	_, err := client.AddOrder(context.Background(), "7", "https://fb.com/page", 150)
	var perr *errs.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "Unknown error", perr.Message)

	_, err = client.Status(context.Background(), "99")
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "Unknown error", perr.Message)
}

func TestStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "99", r.PostForm.Get("order"))
		_, _ = w.Write([]byte(`{"charge":"0.27","status":"In progress","remains":"100"}`))
	})

	status, err := client.Status(context.Background(), "99")
	require.NoError(t, err)
	require.Equal(t, "In progress", status)
}

func TestStatusPrefersStatusOverError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"Partial","error":"Order is being refilled"}`))
	})

	status, err := client.Status(context.Background(), "99")
	require.NoError(t, err)
	require.Equal(t, "Partial", status)
}

func TestStatusInvalidJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>502 Bad Gateway</html>`))
	})

	_, err := client.Status(context.Background(), "99")
	require.ErrorIs(t, err, errs.ErrInvalidResponse)
}
