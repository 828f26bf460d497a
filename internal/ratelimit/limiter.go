package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Thresholds holds the per-window request ceilings for one source.
// A zero value for a window means that window is unbounded.
type Thresholds struct {
	PerSecond int `yaml:"per_second"`
	PerHour   int `yaml:"per_hour"`
	PerDay    int `yaml:"per_day"`
}

// Unbounded reports whether no window carries a threshold.
func (t Thresholds) Unbounded() bool {
	return t.PerSecond == 0 && t.PerHour == 0 && t.PerDay == 0
}

type window struct {
	name  string
	size  time.Duration
	slack time.Duration
}

// The three fixed windows. TTLs run slightly past the window so a counter
// read right at a bucket boundary under clock skew still resolves.
var windows = [3]window{
	{name: "sec", size: time.Second, slack: 2 * time.Second},
	{name: "hour", size: time.Hour, slack: 5 * time.Minute},
	{name: "day", size: 24 * time.Hour, slack: time.Hour},
}

// Limiter enforces per-source, per-endpoint fixed-window admission
// control over second, hour, and day windows.
//
// Windows are aligned to wall-clock boundaries, not sliding: a burst can
// straddle a boundary and momentarily exceed the nominal rate. That is an
// accepted trade-off for this engine's purpose (politeness toward
// third-party sources) and should not be changed to sliding windows
// without revisiting the counter key scheme.
type Limiter struct {
	store  CounterStore
	limits map[string]Thresholds
	now    func() time.Time
	log    *zap.Logger
}

// NewLimiter creates a limiter over the given store. limits maps source
// name to its thresholds; sources absent from the map are unbounded.
func NewLimiter(store CounterStore, limits map[string]Thresholds) *Limiter {
	return &Limiter{
		store:  store,
		limits: limits,
		now:    time.Now,
		log:    zap.L().With(zap.String("component", "ratelimit")),
	}
}

// WithNow fixes the clock for testing.
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// CanQuery reports whether a query to source/endpoint is admissible right
// now: the current count in every thresholded window must be strictly
// below its ceiling. It never mutates counters. If the counter store is
// unreachable it fails open — search availability outranks strict rate
// compliance.
func (l *Limiter) CanQuery(ctx context.Context, source, endpoint string) bool {
	limits, ok := l.limits[source]
	if !ok || limits.Unbounded() {
		return true
	}

	now := l.now()
	for i, w := range windows {
		threshold := limits.forWindow(i)
		if threshold <= 0 {
			continue
		}
		count, err := l.store.Get(ctx, bucketKey(source, endpoint, w, now))
		if err != nil {
			l.log.Warn("counter store unavailable, failing open",
				zap.String("source", source),
				zap.String("window", w.name),
				zap.Error(err),
			)
			return true
		}
		if count >= int64(threshold) {
			return false
		}
	}
	return true
}

// RecordQuery increments the current bucket of all three windows for
// source/endpoint. Store errors are logged and swallowed: a missed
// increment only makes the limiter slightly more permissive.
func (l *Limiter) RecordQuery(ctx context.Context, source, endpoint string) {
	now := l.now()
	for _, w := range windows {
		if _, err := l.store.Incr(ctx, bucketKey(source, endpoint, w, now), w.size+w.slack); err != nil {
			l.log.Warn("failed to record query",
				zap.String("source", source),
				zap.String("window", w.name),
				zap.Error(err),
			)
		}
	}
}

// WaitTime returns advisory backoff: the remainder of the current second
// bucket when the second window is saturated, zero otherwise. Nothing in
// the limiter enforces it.
func (l *Limiter) WaitTime(ctx context.Context, source, endpoint string) time.Duration {
	limits, ok := l.limits[source]
	if !ok || limits.PerSecond <= 0 {
		return 0
	}

	now := l.now()
	count, err := l.store.Get(ctx, bucketKey(source, endpoint, windows[0], now))
	if err != nil || count < int64(limits.PerSecond) {
		return 0
	}
	return now.Truncate(time.Second).Add(time.Second).Sub(now)
}

func (t Thresholds) forWindow(i int) int {
	switch i {
	case 0:
		return t.PerSecond
	case 1:
		return t.PerHour
	default:
		return t.PerDay
	}
}

// bucketKey derives the counter key for one window by truncating the
// timestamp to the window's granularity.
func bucketKey(source, endpoint string, w window, now time.Time) string {
	var bucket string
	switch w.name {
	case "sec":
		bucket = now.UTC().Format("20060102T150405")
	case "hour":
		bucket = now.UTC().Format("20060102T15")
	default:
		bucket = now.UTC().Format("20060102")
	}
	return fmt.Sprintf("rl:%s:%s:%s:%s", source, endpoint, w.name, bucket)
}
