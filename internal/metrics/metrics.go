package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the three sync workers.
var (
	OrdersSyncedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kody_orders_synced_total",
			Help: "Total number of Kody orders written to the POS database",
		},
	)

	OrderSyncFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kody_order_sync_failures_total",
			Help: "Total number of orders that failed to sync to the POS database",
		},
	)

	OrdersSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kody_orders_skipped_total",
			Help: "Total number of orders skipped because they were already synced",
		},
	)

	StatusUpdatesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kody_status_updates_sent_total",
			Help: "Total number of status updates accepted by the Kody API",
		},
	)

	StatusUpdateFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kody_status_update_failures_total",
			Help: "Total number of status updates the Kody API rejected or that failed",
		},
	)

	StateRecordsDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "state_records_deleted_total",
			Help: "Total number of processing-state records removed by retention cleanup",
		},
	)

	SyncCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_sync_cycle_duration_seconds",
			Help:    "Duration of one order sync cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	StatusCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "status_update_cycle_duration_seconds",
			Help:    "Duration of one status update cycle",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all Prometheus metrics.
func Register() {
	prometheus.MustRegister(OrdersSyncedTotal)
	prometheus.MustRegister(OrderSyncFailuresTotal)
	prometheus.MustRegister(OrdersSkippedTotal)
	prometheus.MustRegister(StatusUpdatesSentTotal)
	prometheus.MustRegister(StatusUpdateFailuresTotal)
	prometheus.MustRegister(StateRecordsDeletedTotal)
	prometheus.MustRegister(SyncCycleDuration)
	prometheus.MustRegister(StatusCycleDuration)
}
