// Package aggregator runs the multi-source search: admission control,
// batched concurrent querying, then scoring, grouping, and merging.
package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hdtickets/ticketsearch/internal/fusion"
	"github.com/hdtickets/ticketsearch/internal/model"
	"github.com/hdtickets/ticketsearch/internal/monitoring"
	"github.com/hdtickets/ticketsearch/internal/ratelimit"
	"github.com/hdtickets/ticketsearch/internal/source"
)

const (
	// DefaultBatchSize bounds how many sources are queried concurrently.
	// Batches run strictly one after another.
	DefaultBatchSize = 3

	// DefaultTaskTimeout caps one source query.
	DefaultTaskTimeout = 30 * time.Second
)

// Orchestrator coordinates a search across all registered sources.
type Orchestrator struct {
	reg         *source.Registry
	limiter     *ratelimit.Limiter
	scorer      *fusion.Scorer
	matcher     *fusion.Matcher
	merger      *fusion.Merger
	recorder    monitoring.Recorder
	batchSize   int
	taskTimeout time.Duration
	newID       func() string
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithBatchSize overrides the concurrent batch width. Values below 1
// are ignored.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.batchSize = n
		}
	}
}

// WithTaskTimeout overrides the per-source query timeout.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.taskTimeout = d }
}

// WithRecorder sets the telemetry sink for per-source outcomes.
func WithRecorder(r monitoring.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithIDGenerator fixes search ID generation for testing.
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// NewOrchestrator creates an orchestrator over the registry and limiter.
func NewOrchestrator(reg *source.Registry, limiter *ratelimit.Limiter, scorer *fusion.Scorer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:         reg,
		limiter:     limiter,
		scorer:      scorer,
		matcher:     fusion.NewMatcher(),
		merger:      fusion.NewMerger(),
		recorder:    monitoring.NopRecorder{},
		batchSize:   DefaultBatchSize,
		taskTimeout: DefaultTaskTimeout,
		newID:       func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SearchOpts restricts which sources a search hits.
type SearchOpts struct {
	Sources []string // empty = all registered
}

// Result is one finished search.
type Result struct {
	SearchID string              `json:"search_id"`
	Criteria model.Criteria      `json:"criteria"`
	Events   []model.MergedEvent `json:"events"`
	Queried  []string            `json:"sources_queried"`
	Skipped  []string            `json:"sources_skipped,omitempty"`
	Failed   []string            `json:"sources_failed,omitempty"`
	RawCount int                 `json:"raw_count"`
	Elapsed  time.Duration       `json:"elapsed"`
}

// Aggregate runs one search. Sources over their rate thresholds are
// skipped up front without counting against them. The admitted sources
// are queried in sequential batches, concurrently within each batch;
// one source failing or timing out never affects the others. Collected
// records are scored, grouped by similarity, and merged.
//
// The returned error is non-nil only when the whole search could not
// run (bad source selection, canceled context). Per-source failures
// are reported through Result.Failed and the telemetry recorder.
func (o *Orchestrator) Aggregate(ctx context.Context, crit model.Criteria, opts SearchOpts) (*Result, error) {
	res := &Result{SearchID: o.newID(), Criteria: crit}
	log := zap.L().With(
		zap.String("component", "aggregator"),
		zap.String("search_id", res.SearchID),
	)
	start := time.Now()

	sources, err := o.reg.Select(opts.Sources)
	if err != nil {
		return nil, err
	}

	// Admission control happens at selection time. A skipped source is
	// not queried and not recorded against; its counters only move when
	// a query is actually dispatched.
	var admitted []source.Source
	for _, s := range sources {
		if !o.limiter.CanQuery(ctx, s.Name(), source.DefaultEndpoint) {
			log.Debug("source over rate threshold, skipping", zap.String("source", s.Name()))
			res.Skipped = append(res.Skipped, s.Name())
			continue
		}
		admitted = append(admitted, s)
	}

	if len(admitted) == 0 {
		log.Info("no sources admitted")
		res.Events = []model.MergedEvent{}
		res.Elapsed = time.Since(start)
		return res, nil
	}

	// perSource[i] holds source i's records so the flattened stream
	// keeps task-registration order regardless of completion order.
	perSource := make([][]model.RawEvent, len(admitted))
	failed := make([]bool, len(admitted))

	for batchStart := 0; batchStart < len(admitted); batchStart += o.batchSize {
		batchEnd := min(batchStart+o.batchSize, len(admitted))

		g, gctx := errgroup.WithContext(ctx)
		for i := batchStart; i < batchEnd; i++ {
			s := admitted[i]
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				sLog := log.With(zap.String("source", s.Name()))
				adapted := s.Adapt(crit)

				taskStart := time.Now()
				taskCtx, cancel := context.WithTimeout(gctx, o.taskTimeout)
				events, err := s.Search(taskCtx, adapted)
				cancel()
				elapsed := time.Since(taskStart)

				if err != nil {
					kind := classifyError(taskCtx, err)
					sLog.Error("source query failed",
						zap.String("kind", kind),
						zap.Duration("elapsed", elapsed),
						zap.Error(err),
					)
					o.recorder.RecordFailure(s.Name(), kind, elapsed)
					failed[i] = true
					return nil // don't abort other sources on individual failure
				}

				o.limiter.RecordQuery(gctx, s.Name(), source.DefaultEndpoint)
				o.recorder.RecordSuccess(s.Name(), elapsed, len(events))
				sLog.Info("source query complete",
					zap.Int("results", len(events)),
					zap.Duration("elapsed", elapsed),
				)
				perSource[i] = events
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var raw []model.RawEvent
	for i, s := range admitted {
		if failed[i] {
			res.Failed = append(res.Failed, s.Name())
			continue
		}
		res.Queried = append(res.Queried, s.Name())
		raw = append(raw, perSource[i]...)
	}
	res.RawCount = len(raw)

	scored := o.scorer.ScoreAll(raw)
	groups := o.matcher.Group(scored)
	res.Events = o.merger.MergeAll(groups)
	res.Elapsed = time.Since(start)

	log.Info("search complete",
		zap.Int("raw", res.RawCount),
		zap.Int("merged", len(res.Events)),
		zap.Int("queried", len(res.Queried)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// classifyError buckets a source failure for telemetry.
func classifyError(taskCtx context.Context, err error) string {
	switch {
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		return monitoring.ErrorKindTimeout
	case errors.Is(err, context.Canceled):
		return monitoring.ErrorKindCanceled
	default:
		return monitoring.ErrorKindTransport
	}
}
