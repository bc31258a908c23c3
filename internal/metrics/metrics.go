package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 交易循环的 Prometheus 指标, 使用独立的 Registry
type Metrics struct {
	Registry *prometheus.Registry

	CyclesTotal         prometheus.Counter
	SignalsTotal        *prometheus.CounterVec // labels: symbol, signal
	OrdersTotal         *prometheus.CounterVec // labels: symbol, result
	CandleFetchErrors   *prometheus.CounterVec // labels: symbol
	InsufficientCandles *prometheus.CounterVec // labels: symbol
	HistoryFetchErrors  prometheus.Counter
	CycleDuration       prometheus.Histogram
	LastCycleTimestamp  prometheus.Gauge
	SessionState        prometheus.Gauge // 0=disconnected, 1=connecting, 2=connected
}

// NewMetrics 创建并注册所有指标
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "breakout_cycles_total",
			Help: "Total trading cycles completed",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_signals_total",
			Help: "Breakout signals detected per symbol",
		}, []string{"symbol", "signal"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_orders_total",
			Help: "Market orders submitted per symbol and result",
		}, []string{"symbol", "result"}),
		CandleFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_candle_fetch_errors_total",
			Help: "Candle fetches that failed",
		}, []string{"symbol"}),
		InsufficientCandles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "breakout_insufficient_candles_total",
			Help: "Successful candle fetches with fewer than two candles",
		}, []string{"symbol"}),
		HistoryFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "breakout_history_fetch_errors_total",
			Help: "Trade history fetches that failed",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "breakout_cycle_duration_seconds",
			Help:    "Wall time of one trading cycle",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		LastCycleTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "breakout_last_cycle_timestamp_seconds",
			Help: "Unix time the last trading cycle finished",
		}),
		SessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "breakout_session_state",
			Help: "Broker session state (0=disconnected, 1=connecting, 2=connected)",
		}),
	}

	m.Registry.MustRegister(
		m.CyclesTotal,
		m.SignalsTotal,
		m.OrdersTotal,
		m.CandleFetchErrors,
		m.InsufficientCandles,
		m.HistoryFetchErrors,
		m.CycleDuration,
		m.LastCycleTimestamp,
		m.SessionState,
	)
	return m
}

// ObserveCycle 记录一次完整循环
func (m *Metrics) ObserveCycle(started, finished time.Time) {
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(finished.Sub(started).Seconds())
	m.LastCycleTimestamp.Set(float64(finished.Unix()))
}

// Handler 返回 /metrics 的 http.Handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
