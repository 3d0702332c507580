package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the dashboard's Prometheus collectors
type Metrics struct {
	TicksTotal       *prometheus.CounterVec
	SampleFailures   prometheus.Counter
	QueryFailures    *prometheus.CounterVec
	AlertsRaised     prometheus.Counter
	HistoryLength    prometheus.Gauge
	LastPrice        prometheus.Gauge
	ConnectedLedgers prometheus.Gauge
}

// New registers the collectors on reg
// Use prometheus.NewRegistry() in tests to avoid global registration clashes
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerdash_ticks_total",
			Help: "Total number of scheduler ticks processed",
		}, []string{"task"}),

		SampleFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerdash_sample_failures_total",
			Help: "Total number of price samples that failed and were skipped",
		}),

		QueryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerdash_query_failures_total",
			Help: "Total number of ledger balance queries that failed",
		}, []string{"ledger"}),

		AlertsRaised: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerdash_alerts_raised_total",
			Help: "Total number of price alerts raised",
		}),

		HistoryLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerdash_price_history_length",
			Help: "Number of samples in the price history window",
		}),

		LastPrice: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerdash_last_price",
			Help: "Most recent sampled price",
		}),

		ConnectedLedgers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerdash_connected_ledgers",
			Help: "Number of ledgers whose last balance query for the connected account succeeded",
		}),
	}
}
