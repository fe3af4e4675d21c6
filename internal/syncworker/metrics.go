package syncworker

import "github.com/prometheus/client_golang/prometheus"

var (
	drainsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelfsync_drains_total",
		Help: "Total drain cycles the sync worker has run",
	})
	mutationsSyncedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelfsync_mutations_synced_total",
		Help: "Total pending mutations replayed successfully against the remote API",
	})
	mutationsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shelfsync_mutations_failed_total",
		Help: "Total pending-mutation replay attempts that failed and stayed queued",
	})
	pendingMutations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shelfsync_pending_mutations",
		Help: "Pending mutations left in the queue after the last drain cycle",
	})
)

func init() {
	// Registration is harmless even when no /metrics endpoint is exposed.
	prometheus.MustRegister(drainsTotal, mutationsSyncedTotal, mutationsFailedTotal, pendingMutations)
}
