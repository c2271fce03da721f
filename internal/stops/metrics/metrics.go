package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the stop ledger: insert volume, insert
// failures, and per-query latency.
type Metrics struct {
	StopsLogged    prometheus.Counter
	InsertFailures prometheus.Counter
	QueryDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance with all ledger metrics registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		StopsLogged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "securecheck_stops_logged_total",
			Help: "Total number of stop records inserted via the ledger service",
		}),
		InsertFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "securecheck_stop_insert_failures_total",
			Help: "Total number of rejected stop inserts",
		}),
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "securecheck_query_duration_seconds",
			Help:    "Duration of catalog query executions by query key",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"query"}),
	}
}

// IncrementStopsLogged records a successful single-record insert.
func (m *Metrics) IncrementStopsLogged() {
	m.StopsLogged.Inc()
}

// IncrementInsertFailures records a rejected insert.
func (m *Metrics) IncrementInsertFailures() {
	m.InsertFailures.Inc()
}

// ObserveQuery records the duration of one catalog query execution.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveQuery(key string, start time.Time) {
	m.QueryDuration.WithLabelValues(key).Observe(time.Since(start).Seconds())
}
