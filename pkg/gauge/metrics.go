package gauge

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for a profiling run.
type Metrics struct {
	TablesProfiled *prometheus.CounterVec
	RowsSampled    prometheus.Counter
	EstimatedBytes prometheus.Counter
	RunDuration    prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	tablesProfiled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tablegauge_tables_profiled_total",
		Help: "Tables profiled, by outcome (ok, empty, incomplete)",
	}, []string{"outcome"})

	rowsSampled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tablegauge_rows_sampled_total",
		Help: "Rows sampled across all tables",
	})

	estimatedBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tablegauge_estimated_bytes_total",
		Help: "Estimated row bytes accumulated over all sampled rows",
	})

	runDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tablegauge_run_duration_seconds",
		Help: "Wall time of the profiling run",
	})

	reg.MustRegister(tablesProfiled, rowsSampled, estimatedBytes, runDuration)

	return &Metrics{
		TablesProfiled: tablesProfiled,
		RowsSampled:    rowsSampled,
		EstimatedBytes: estimatedBytes,
		RunDuration:    runDuration,
	}
}
