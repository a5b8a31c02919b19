package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topupbd_provider_requests_total",
			Help: "Calls made to the provider API",
		},
		[]string{"action", "result"},
	)

	ordersPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "topupbd_orders_placed_total",
			Help: "Orders accepted by the provider",
		},
	)

	statusRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topupbd_order_status_refresh_total",
			Help: "Order status refreshes",
		},
		[]string{"result"},
	)

	fundRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topupbd_fund_requests_total",
			Help: "Manual top-up requests recorded as pending",
		},
		[]string{"method"},
	)

	activeStates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "topupbd_active_states",
			Help: "Visitor states held in memory",
		},
	)
)

// Results recorded for provider calls.
const (
	ResultOK            = "ok"
	ResultProviderError = "provider_error"
	ResultFailure       = "failure"
)

func TrackProviderRequest(action, result string) {
	providerRequests.WithLabelValues(action, result).Inc()
}

func TrackOrderPlaced() {
	ordersPlaced.Inc()
}

func TrackStatusRefresh(result string) {
	statusRefreshes.WithLabelValues(result).Inc()
}

func TrackFundRequest(method string) {
	fundRequests.WithLabelValues(method).Inc()
}

func SetActiveStates(n int) {
	activeStates.Set(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
