// Package proxy forwards JSON action requests to the provider API as
// form-encoded calls carrying the operator's secret key.
//
// Any caller of this endpoint can invoke any provider action with the
// operator's credentials and budget; there is no allow-list.
package proxy

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/monitoring"
	"github.com/and161185/topupbd/internal/provider"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type Forwarder interface {
	Call(ctx context.Context, action string, params []provider.Param) ([]byte, error)
}

type Handler struct {
	forwarder Forwarder
	logger    *zap.SugaredLogger
}

func NewHandler(forwarder Forwarder, logger *zap.SugaredLogger) *Handler {
	return &Handler{forwarder: forwarder, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		h.logger.Errorf("proxy: unreadable request body: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	action, params := splitRequest(gjson.ParseBytes(body))

	data, err := h.forwarder.Call(r.Context(), action, params)
	if err != nil {
		monitoring.TrackProviderRequest(action, monitoring.ResultFailure)
		h.logger.Errorf("proxy: %s: %v", action, err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if !json.Valid(data) {
		monitoring.TrackProviderRequest(action, monitoring.ResultFailure)
		h.logger.Errorf("failed to parse provider response: %s", data)
		writeError(w, http.StatusInternalServerError, "Invalid response from provider API")
		return
	}

	monitoring.TrackProviderRequest(action, monitoring.ResultOK)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// splitRequest separates the action from the remaining params, keeping the
// order in which they appear in the body.
func splitRequest(body gjson.Result) (string, []provider.Param) {
	action := "undefined"
	var params []provider.Param

	body.ForEach(func(key, value gjson.Result) bool {
		if key.Str == "action" {
			action = stringify(value)
			return true
		}
		params = append(params, provider.Param{Key: key.Str, Value: stringify(value)})
		return true
	})

	return action, params
}

// stringify renders a JSON value the way JavaScript's String(v) does.
func stringify(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return formatNumber(v.Num)
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Null:
		return "null"
	}

	if v.IsArray() {
		var parts []string
		for _, el := range v.Array() {
			if el.Type == gjson.Null {
				parts = append(parts, "")
				continue
			}
			parts = append(parts, stringify(el))
		}
		return strings.Join(parts, ",")
	}

	return "[object Object]"
}

// formatNumber switches to exponent notation outside [1e-6, 1e21) and
// drops exponent padding, so 1e21 becomes "1e+21" and 1e-7 "1e-7".
func formatNumber(n float64) string {
	if n == 0 {
		return "0"
	}
	if abs := math.Abs(n); abs >= 1e21 || abs < 1e-6 {
		mantissa, exp, _ := strings.Cut(strconv.FormatFloat(n, 'e', -1, 64), "e")
		return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS,PATCH,DELETE,POST,PUT")
	w.Header().Set("Access-Control-Allow-Headers", "X-CSRF-Token, X-Requested-With, Accept, Accept-Version, Content-Length, Content-MD5, Content-Type, Date, X-Api-Version")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg})
}
