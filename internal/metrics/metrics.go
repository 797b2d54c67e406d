package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "reservations_created_total",
			Help:      "Reservations successfully created.",
		},
	)

	slotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "slot_conflicts_total",
			Help:      "Submissions rejected because the slot was already taken.",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salonbook",
			Name:      "status_transitions_total",
			Help:      "Reservation lifecycle transitions by target status.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationsCreated, slotConflicts, statusTransitions)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncReservationCreated counts a successful booking.
func IncReservationCreated() {
	reservationsCreated.Inc()
}

// IncSlotConflict counts a rejected double-booking attempt.
func IncSlotConflict() {
	slotConflicts.Inc()
}

// IncStatusTransition counts a lifecycle transition.
func IncStatusTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}
