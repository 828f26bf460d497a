package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromRecorder exports per-source query telemetry as Prometheus metrics.
// Used by the serve command, which exposes /metrics for scraping.
type PromRecorder struct {
	successTotal *prometheus.CounterVec
	failureTotal *prometheus.CounterVec
	resultCount  *prometheus.HistogramVec
	responseTime *prometheus.HistogramVec
}

// NewPromRecorder creates a recorder and registers its metrics with reg.
// Pass prometheus.DefaultRegisterer outside of tests.
func NewPromRecorder(reg prometheus.Registerer) *PromRecorder {
	r := &PromRecorder{
		successTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketsearch",
			Name:      "source_queries_success_total",
			Help:      "Successful source queries by source",
		}, []string{"source"}),
		failureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ticketsearch",
			Name:      "source_queries_failure_total",
			Help:      "Failed source queries by source and error kind",
		}, []string{"source", "error_kind"}),
		resultCount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ticketsearch",
			Name:      "source_query_results",
			Help:      "Raw event records returned per successful query",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{"source"}),
		responseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ticketsearch",
			Name:      "source_query_duration_seconds",
			Help:      "Source query round-trip time",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}

	reg.MustRegister(r.successTotal, r.failureTotal, r.resultCount, r.responseTime)
	return r
}

func (r *PromRecorder) RecordSuccess(source string, responseTime time.Duration, resultCount int) {
	r.successTotal.WithLabelValues(source).Inc()
	r.resultCount.WithLabelValues(source).Observe(float64(resultCount))
	r.responseTime.WithLabelValues(source).Observe(responseTime.Seconds())
}

func (r *PromRecorder) RecordFailure(source, errorKind string, responseTime time.Duration) {
	r.failureTotal.WithLabelValues(source, errorKind).Inc()
	r.responseTime.WithLabelValues(source).Observe(responseTime.Seconds())
}
