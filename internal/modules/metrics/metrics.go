package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — счётчики пайплайна для Prometheus.
type Metrics struct {
	ScanCycles   prometheus.Counter
	ScanDuration prometheus.Histogram
	PairsWatched prometheus.Gauge

	SignalsFound    prometheus.Counter
	SignalsRejected *prometheus.CounterVec

	TradesOpened prometheus.Counter
	TradesClosed *prometheus.CounterVec
	OpenTrades   prometheus.Gauge
	TotalPnL     prometheus.Gauge

	OrderErrors prometheus.Counter
}

// New регистрирует метрики в переданном реестре.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScanCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "bot_scan_cycles_total",
			Help: "Completed market scan cycles.",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_scan_duration_seconds",
			Help:    "Duration of a full scan cycle.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		PairsWatched: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bot_pairs_watched",
			Help: "Trading pairs in the current scan universe.",
		}),
		SignalsFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "bot_signals_found_total",
			Help: "Signals that passed all gates.",
		}),
		SignalsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_signals_rejected_total",
			Help: "Signals rejected before execution.",
		}, []string{"reason"}),
		TradesOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "bot_trades_opened_total",
			Help: "Trades opened.",
		}),
		TradesClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trades_closed_total",
			Help: "Trades closed by reason.",
		}, []string{"reason"}),
		OpenTrades: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bot_open_trades",
			Help: "Currently open trades.",
		}),
		TotalPnL: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bot_total_pnl_usdt",
			Help: "Cumulative realized PnL in USDT.",
		}),
		OrderErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "bot_order_errors_total",
			Help: "Failed exchange order operations.",
		}),
	}
}
