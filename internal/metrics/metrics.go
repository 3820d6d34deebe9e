package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the various metrics used for monitoring the application.
// It covers requests against the document store, revision conflicts,
// roster operations served by the facade and database query latency.
type Metrics struct {
	StoreRequests        *prometheus.CounterVec
	StoreRequestDuration *prometheus.HistogramVec
	RevisionConflicts    prometheus.Counter
	ConflictRetries      prometheus.Counter
	EmployeeOperations   *prometheus.CounterVec
	RosterSize           prometheus.Gauge
	DBQueryDuration      *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with the provided Registerer.
//
// Parameters:
//   - reg: A prometheus.Registerer used to register the metrics.
//
// Returns:
//   - A pointer to the newly created Metrics instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		StoreRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "emsroster_store_requests_total",
			Help: "Total requests sent to the document store, by operation and outcome.",
		}, []string{"op", "status"}),
		StoreRequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "emsroster_store_request_duration_seconds",
			Help:    "Duration of requests sent to the document store.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		RevisionConflicts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "emsroster_revision_conflicts_total",
			Help: "Total writes rejected because the document revision was stale.",
		}),
		ConflictRetries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "emsroster_conflict_retries_total",
			Help: "Total read-modify-write cycles restarted after a revision conflict.",
		}),
		EmployeeOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "emsroster_employee_operations_total",
			Help: "Total roster operations, by operation and result.",
		}, []string{"op", "result"}),
		RosterSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "emsroster_roster_size",
			Help: "Number of employees in the last document read.",
		}),
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "emsroster_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'read_document', 'write_document'
	}

	return metrics
}
