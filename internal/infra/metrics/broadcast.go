package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		broadcastDeliveriesTotal,
		broadcastSweepsTotal,
	)
}

var (
	broadcastDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_deliveries_total",
			Help: "Per-recipient broadcast outcomes, by delivery status.",
		},
		[]string{"status"}, // 'delivered', 'skipped_duplicate', 'skipped_unreachable', 'failed'
	)

	broadcastSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_sweeps_total",
			Help: "Pending-broadcast sweep runs, by result.",
		},
		[]string{"result"}, // 'ok', 'error'
	)
)

func IncBroadcastDelivery(status string) {
	broadcastDeliveriesTotal.WithLabelValues(norm(status)).Inc()
}

func IncBroadcastSweep(result string) {
	broadcastSweepsTotal.WithLabelValues(norm(result)).Inc()
}
