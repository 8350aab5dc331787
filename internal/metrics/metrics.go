package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewearn_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viewearn_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewearn_ledger_operations_total",
			Help: "Ledger operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	CoinsMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewearn_coins_moved_total",
			Help: "Coins credited and debited across all wallets",
		},
		[]string{"direction"},
	)

	CurrencyMovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viewearn_currency_moved_total",
			Help: "Currency units credited and debited across all wallets",
		},
		[]string{"direction"},
	)

	WalletSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "viewearn_wallet_ws_subscribers",
			Help: "Open wallet WebSocket connections",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordLedgerOperation(operation, outcome string) {
	LedgerOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordCoinsMoved(credited, debited int64) {
	if credited > 0 {
		CoinsMovedTotal.WithLabelValues("credit").Add(float64(credited))
	}
	if debited > 0 {
		CoinsMovedTotal.WithLabelValues("debit").Add(float64(debited))
	}
}

func RecordCurrencyMoved(credited, debited int64) {
	if credited > 0 {
		CurrencyMovedTotal.WithLabelValues("credit").Add(float64(credited))
	}
	if debited > 0 {
		CurrencyMovedTotal.WithLabelValues("debit").Add(float64(debited))
	}
}
