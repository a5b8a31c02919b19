package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/monitoring"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Actions understood by the provider.
const (
	ActionBalance  = "balance"
	ActionServices = "services"
	ActionAdd      = "add"
	ActionStatus   = "status"
)

// Param is a single form field forwarded to the provider. Order is kept.
type Param struct {
	Key   string
	Value string
}

type Client struct {
	url        string
	key        string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

func NewClient(apiURL, key string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		url:        apiURL,
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Call posts a form-encoded request with the secret key and action prepended
// and returns the raw response body. The body is not validated.
func (c *Client) Call(ctx context.Context, action string, params []Param) ([]byte, error) {
	var form strings.Builder
	form.WriteString("key=" + url.QueryEscape(c.key))
	form.WriteString("&action=" + url.QueryEscape(action))
	for _, p := range params {
		form.WriteString("&" + url.QueryEscape(p.Key) + "=" + url.QueryEscape(p.Value))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.String()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}

const unknownError = "Unknown error"

// result performs a call and classifies the payload: transport and parse
// failures are returned as wrapped errors, {"error": ...} as *errs.ProviderError.
// A truthy okField wins over an error field sent alongside it.
func (c *Client) result(ctx context.Context, action string, params []Param, okField string) (gjson.Result, error) {
	body, err := c.Call(ctx, action, params)
	if err != nil {
		monitoring.TrackProviderRequest(action, monitoring.ResultFailure)
		return gjson.Result{}, fmt.Errorf("%s: %w", action, err)
	}

	if !gjson.ValidBytes(body) {
		monitoring.TrackProviderRequest(action, monitoring.ResultFailure)
		c.logger.Errorf("failed to parse provider response for %s: %s", action, body)
		return gjson.Result{}, fmt.Errorf("%s: %w", action, errs.ErrInvalidResponse)
	}

	res := gjson.ParseBytes(body)
	if res.IsObject() && (okField == "" || !truthy(res.Get(okField))) {
		if e := res.Get("error"); e.Exists() {
			monitoring.TrackProviderRequest(action, monitoring.ResultProviderError)
			msg := e.String()
			if !truthy(e) {
				msg = unknownError
			}
			return res, &errs.ProviderError{Message: msg}
		}
	}

	monitoring.TrackProviderRequest(action, monitoring.ResultOK)
	return res, nil
}

// Balance returns the operator's balance in provider currency.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	res, err := c.result(ctx, ActionBalance, nil, "balance")
	if err != nil {
		return decimal.Zero, err
	}

	balance, err := decimal.NewFromString(res.Get("balance").String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance: %w", errs.ErrUnexpectedPayload)
	}

	return balance, nil
}

func (c *Client) Services(ctx context.Context) ([]model.ApiService, error) {
	res, err := c.result(ctx, ActionServices, nil, "")
	if err != nil {
		return nil, err
	}

	if !res.IsArray() {
		return nil, fmt.Errorf("services: %w", errs.ErrUnexpectedPayload)
	}

	var services []model.ApiService
	res.ForEach(func(_, item gjson.Result) bool {
		services = append(services, model.ApiService{
			ID:       item.Get("service").Int(),
			Name:     item.Get("name").String(),
			Type:     item.Get("type").String(),
			Category: item.Get("category").String(),
			Rate:     item.Get("rate").String(),
			Min:      int(item.Get("min").Int()),
			Max:      int(item.Get("max").Int()),
			Refill:   item.Get("refill").Bool(),
			Cancel:   item.Get("cancel").Bool(),
		})
		return true
	})

	return services, nil
}

// AddOrder places an order and returns the provider-assigned order id.
func (c *Client) AddOrder(ctx context.Context, serviceID, link string, quantity int) (string, error) {
	params := []Param{
		{Key: "service", Value: serviceID},
		{Key: "link", Value: link},
		{Key: "quantity", Value: strconv.Itoa(quantity)},
	}

	res, err := c.result(ctx, ActionAdd, params, "order")
	if err != nil {
		return "", err
	}

	order := res.Get("order")
	if !truthy(order) {
		return "", &errs.ProviderError{Message: unknownError}
	}

	return order.String(), nil
}

// Status returns the provider status of an order. An empty status with a
// nil error means the provider answered with neither status nor error.
func (c *Client) Status(ctx context.Context, orderID string) (string, error) {
	res, err := c.result(ctx, ActionStatus, []Param{{Key: "order", Value: orderID}}, "status")
	if err != nil {
		return "", err
	}

	status := res.Get("status")
	if !truthy(status) {
		return "", nil
	}

	return status.String(), nil
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}
