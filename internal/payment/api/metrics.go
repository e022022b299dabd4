package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_attempts_total",
		Help: "Payment attempts by method and outcome status.",
	}, []string{"method", "status"})

	paymentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_attempt_duration_seconds",
		Help:    "End-to-end payment attempt duration by method.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"method"})
)

func observeAttempt(method, status string, elapsed time.Duration) {
	paymentAttempts.WithLabelValues(method, status).Inc()
	paymentDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
