package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	requestsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vacation_manager",
			Name:      "requests_submitted_total",
			Help:      "Count of vacation requests submitted.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vacation_manager",
			Name:      "request_transitions_total",
			Help:      "Count of request transitions by outcome.",
		},
		[]string{"outcome"},
	)

	remindersFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vacation_manager",
			Name:      "reminders_fired_total",
			Help:      "Count of reminder slot-fires by delivery status.",
		},
		[]string{"status"},
	)

	dispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vacation_manager",
			Name:      "dispatch_duration_seconds",
			Help:      "Time to dispatch one reminder message.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5},
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vacation_manager",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(requestsSubmitted, transitions, remindersFired, dispatchDuration, httpRequests)
	})
}

func IncRequestSubmitted() {
	requestsSubmitted.Inc()
}

func IncTransition(outcome string) {
	transitions.WithLabelValues(outcome).Inc()
}

func IncReminderFired(status string) {
	remindersFired.WithLabelValues(status).Inc()
}

func ObserveDispatchDuration(seconds float64) {
	dispatchDuration.Observe(seconds)
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
