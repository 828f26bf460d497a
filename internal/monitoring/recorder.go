package monitoring

import (
	"time"

	"go.uber.org/zap"
)

// Recorder receives fire-and-forget telemetry from the aggregator after
// every source query. Implementations must be safe for concurrent use
// and must not block; the aggregator never inspects an outcome.
type Recorder interface {
	RecordSuccess(source string, responseTime time.Duration, resultCount int)
	RecordFailure(source, errorKind string, responseTime time.Duration)
}

// Error kinds reported to RecordFailure.
const (
	ErrorKindTimeout   = "timeout"
	ErrorKindTransport = "transport"
	ErrorKindCanceled  = "canceled"
)

// NopRecorder discards all telemetry.
type NopRecorder struct{}

func (NopRecorder) RecordSuccess(string, time.Duration, int)    {}
func (NopRecorder) RecordFailure(string, string, time.Duration) {}

// LogRecorder writes telemetry to the zap logger. This is the default
// backend for CLI runs, where no metrics endpoint exists to scrape.
type LogRecorder struct {
	log *zap.Logger
}

// NewLogRecorder creates a zap-backed recorder.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{log: zap.L().With(zap.String("component", "monitoring"))}
}

func (r *LogRecorder) RecordSuccess(source string, responseTime time.Duration, resultCount int) {
	r.log.Info("source query succeeded",
		zap.String("source", source),
		zap.Duration("response_time", responseTime),
		zap.Int("results", resultCount),
	)
}

func (r *LogRecorder) RecordFailure(source, errorKind string, responseTime time.Duration) {
	r.log.Warn("source query failed",
		zap.String("source", source),
		zap.String("error_kind", errorKind),
		zap.Duration("response_time", responseTime),
	)
}
