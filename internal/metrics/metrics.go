// Package metrics defines the Prometheus registry and instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "waybills"

// Registry is the process-wide Prometheus registry.
var Registry = prometheus.NewRegistry()

// AppInfo exposes build information as labels, always set to 1.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always 1, details in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// Import pipeline metrics.
var (
	ImportRunsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_runs_total",
			Help:      "Total import reconciliation runs by tenant",
		},
		[]string{"tenant"},
	)

	ImportRowsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Imported rows by tenant and outcome",
		},
		[]string{"tenant", "outcome"},
	)

	ImportQueueDepth = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "import_queue_depth",
			Help:      "Current number of queued import payloads",
		},
	)

	StuckJobsSwept = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stuck_import_jobs_swept_total",
			Help:      "Import jobs moved from RUNNING to FAILED by the sweep",
		},
	)
)

// Cache metrics.
var CacheRequestsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Response cache lookups by endpoint and result",
	},
	[]string{"endpoint", "result"},
)

// ImportObserver adapts the row counters to the reconciliation engine.
type ImportObserver struct{}

func (ImportObserver) ObserveImport(tenantID string, inserted, updated, rejected int) {
	ImportRunsTotal.WithLabelValues(tenantID).Inc()
	ImportRowsTotal.WithLabelValues(tenantID, "inserted").Add(float64(inserted))
	ImportRowsTotal.WithLabelValues(tenantID, "updated").Add(float64(updated))
	ImportRowsTotal.WithLabelValues(tenantID, "rejected").Add(float64(rejected))
}
