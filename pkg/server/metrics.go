package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsRegistry struct {
	registry           *prometheus.Registry
	quotesTotal        *prometheus.CounterVec
	swapsTotal         *prometheus.CounterVec
	withdrawalsTotal   *prometheus.CounterVec
	proxyRequestsTotal *prometheus.CounterVec
	balanceWatchMode   prometheus.Gauge
}

func newMetricsRegistry() *metricsRegistry {
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trollswap_quotes_total",
		Help: "Total number of swap quotes prepared",
	}, []string{"status"})

	swaps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trollswap_swaps_total",
		Help: "Total number of swap executions",
	}, []string{"status"})

	withdrawals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trollswap_withdrawals_total",
		Help: "Total number of withdrawal submissions",
	}, []string{"status"})

	proxied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trollswap_proxy_requests_total",
		Help: "Requests forwarded to the aggregator API",
	}, []string{"endpoint", "status"})

	watchMode := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trollswap_balance_watch_mode",
		Help: "Balance refresh mode: 1 when subscribed, 0 when polling",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(quotes, swaps, withdrawals, proxied, watchMode)

	return &metricsRegistry{
		registry:           r,
		quotesTotal:        quotes,
		swapsTotal:         swaps,
		withdrawalsTotal:   withdrawals,
		proxyRequestsTotal: proxied,
		balanceWatchMode:   watchMode,
	}
}

func (m *metricsRegistry) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metricsRegistry) incQuote(status string) {
	m.quotesTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incSwap(status string) {
	m.swapsTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incWithdrawal(status string) {
	m.withdrawalsTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incProxy(endpoint, status string) {
	m.proxyRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func (m *metricsRegistry) setWatchMode(mode string) {
	if mode == "subscription" {
		m.balanceWatchMode.Set(1)
		return
	}
	m.balanceWatchMode.Set(0)
}
