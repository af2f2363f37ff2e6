package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/tierpay/internal/purchase/model"
)

var (
	purchaseStageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierpay",
		Subsystem: "purchase",
		Name:      "stage_total",
		Help:      "Count of completed purchase stages.",
	}, []string{"stage", "status"})
	purchaseStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tierpay",
		Subsystem: "purchase",
		Name:      "stage_duration_seconds",
		Help:      "Duration of purchase stages.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage", "status"})
	purchaseResultTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierpay",
		Subsystem: "purchase",
		Name:      "results_total",
		Help:      "Count of finished purchase attempts by outcome.",
	}, []string{"tier", "result"})
	purchaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tierpay",
		Subsystem: "purchase",
		Name:      "duration_seconds",
		Help:      "End to end duration of purchase attempts.",
		Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"tier", "result"})
)

// Purchase tracks purchase attempts.
type Purchase struct{}

// NewPurchase creates a Purchase metrics collector.
func NewPurchase() *Purchase {
	return &Purchase{}
}

// ObserveStage records a finished stage of an attempt.
func (m Purchase) ObserveStage(stage model.Stage, err error, started time.Time) {
	status := statusOf(err)

	purchaseStageTotal.WithLabelValues(string(stage), status).Inc()
	purchaseStageDuration.WithLabelValues(string(stage), status).Observe(time.Since(started).Seconds())
}

// ObserveResult records a terminal attempt. An empty category means success.
func (m Purchase) ObserveResult(tier model.TierID, category model.ErrorCategory, started time.Time) {
	result := "succeeded"
	if category != "" {
		result = string(category)
	}

	purchaseResultTotal.WithLabelValues(tier.String(), result).Inc()
	purchaseDuration.WithLabelValues(tier.String(), result).Observe(time.Since(started).Seconds())
}
