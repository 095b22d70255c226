package metrics

import (
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpass_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	reservationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventpass_reservation_duration_seconds",
			Help:    "Time spent in the reservation transaction, lock wait included",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"outcome"},
	)

	tasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventpass_tasks_total",
			Help: "Post-commit tasks by type and status",
		},
		[]string{"type", "status"},
	)

	httpRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventpass_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	liveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventpass_live_subscribers",
			Help: "Open availability feed connections",
		},
	)

	goroutines = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "eventpass_goroutines",
			Help: "Current number of goroutines",
		},
		func() float64 { return float64(runtime.NumGoroutine()) },
	)
)

// Reservation outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeNotFound   = "not_found"
	OutcomeOutOfStock = "out_of_stock"
	OutcomeFailure    = "failure"
	OutcomeInvalid    = "invalid"
)

func ObserveReservation(outcome string, took time.Duration) {
	reservations.WithLabelValues(outcome).Inc()
	reservationDuration.WithLabelValues(outcome).Observe(took.Seconds())
}

// Task statuses.
const (
	TaskEnqueued = "enqueued"
	TaskDropped  = "dropped"
	TaskDone     = "done"
	TaskFailed   = "failed"
)

func CountTask(taskType, status string) {
	tasks.WithLabelValues(taskType, status).Inc()
}

func ObserveHTTPRequest(method, route string, status int, took time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(took.Seconds())
}

func LiveSubscriberJoined() { liveSubscribers.Inc() }
func LiveSubscriberLeft()   { liveSubscribers.Dec() }
