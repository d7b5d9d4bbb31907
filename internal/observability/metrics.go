package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// mmsOutcomes counts finished MMS requests by outcome label
	// (e.g. "accepted", "quota_exceeded:global").
	mmsOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mms_outcomes_total",
			Help: "Total number of MMS requests by outcome.",
		},
		[]string{"outcome"},
	)

	// mmsGeneration records image generation latency by result.
	mmsGeneration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mms_generation_seconds",
			Help:    "Duration of image generation calls in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(mmsOutcomes, mmsGeneration)
}

// ObserveOutcome increments mms_outcomes_total for label.
func ObserveOutcome(label string) {
	mmsOutcomes.WithLabelValues(label).Inc()
}

// ObserveGeneration records one image generation call.
func ObserveGeneration(d time.Duration, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	mmsGeneration.WithLabelValues(result).Observe(d.Seconds())
}
