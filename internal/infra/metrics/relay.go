package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		relayedMessagesTotal,
		topicsCreatedTotal,
	)
}

const (
	DirectionUserToStaff = "user_to_staff"
	DirectionStaffToUser = "staff_to_user"
)

var (
	relayedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayed_messages_total",
			Help: "Messages relayed between users and staff topics, by direction.",
		},
		[]string{"direction"},
	)

	topicsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topics_created_total",
			Help: "Forum topics created on first contact, by category.",
		},
		[]string{"category"},
	)
)

func IncRelayed(direction string) {
	relayedMessagesTotal.WithLabelValues(norm(direction)).Inc()
}

func IncTopicsCreated(category string) {
	topicsCreatedTotal.WithLabelValues(norm(category)).Inc()
}
