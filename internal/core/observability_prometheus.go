package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dreammover/internal/state"
)

// PrometheusMetricsRecorder exports operation outcomes and state fallbacks as
// Prometheus collectors.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	fallbacks  *prometheus.CounterVec
}

var _ state.DefaultObserver = (*PrometheusMetricsRecorder)(nil)

// NewPrometheusMetricsRecorder registers the collectors with reg. A nil reg
// leaves them unregistered.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dreammover_operations_total",
			Help: "Service operations by outcome",
		}, []string{"operation", "status"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dreammover_operation_duration_seconds",
			Help:    "Duration of service operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dreammover_state_default_fallbacks_total",
			Help: "State reads that returned the default document",
		}, []string{"key"}),
	}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	r.operations.WithLabelValues(operation, statusLabel(success)).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveDefault implements state.DefaultObserver.
func (r *PrometheusMetricsRecorder) ObserveDefault(key string, _ state.Fallback) {
	r.fallbacks.WithLabelValues(key).Inc()
}
