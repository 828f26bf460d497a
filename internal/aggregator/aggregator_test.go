package aggregator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hdtickets/ticketsearch/internal/fusion"
	"github.com/hdtickets/ticketsearch/internal/model"
	"github.com/hdtickets/ticketsearch/internal/ratelimit"
	"github.com/hdtickets/ticketsearch/internal/source"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeSource is a scriptable source for orchestrator tests.
type fakeSource struct {
	name   string
	events []model.RawEvent
	err    error
	delay  time.Duration

	mu       sync.Mutex
	searched bool
	started  time.Time
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Adapt(c model.Criteria) model.Criteria { return c.Clone() }

func (f *fakeSource) Search(ctx context.Context, adapted model.Criteria) ([]model.RawEvent, error) {
	f.mu.Lock()
	f.searched = true
	f.started = time.Now()
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.events, f.err
}

func (f *fakeSource) wasSearched() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searched
}

func (f *fakeSource) startedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// spyRecorder captures telemetry calls.
type spyRecorder struct {
	mu        sync.Mutex
	successes map[string]int
	failures  map[string]string // source -> kind
}

func newSpyRecorder() *spyRecorder {
	return &spyRecorder{successes: make(map[string]int), failures: make(map[string]string)}
}

func (r *spyRecorder) RecordSuccess(sourceName string, _ time.Duration, resultCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes[sourceName] = resultCount
}

func (r *spyRecorder) RecordFailure(sourceName, errorKind string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[sourceName] = errorKind
}

func ev(name, sourceName string) model.RawEvent {
	return model.RawEvent{
		Name:   name,
		Date:   time.Date(2026, 9, 12, 15, 0, 0, 0, time.UTC),
		Venue:  "Emirates Stadium",
		Source: sourceName,
	}
}

func newRegistry(sources ...source.Source) *source.Registry {
	reg := source.NewRegistry()
	for _, s := range sources {
		reg.Register(s)
	}
	return reg
}

func unboundedLimiter() *ratelimit.Limiter {
	return ratelimit.NewLimiter(ratelimit.NewMemoryStore(), nil)
}

func TestAggregate_OrderFollowsRegistration(t *testing.T) {
	// The slow source is registered first; its records must still come
	// out ahead of the fast one's. The two events are dissimilar enough
	// (name, date, and venue all differ) that grouping keeps them apart.
	slow := &fakeSource{name: "slow", delay: 40 * time.Millisecond, events: []model.RawEvent{{
		Name:   "Slow Gig",
		Date:   time.Date(2026, 9, 12, 15, 0, 0, 0, time.UTC),
		Venue:  "Emirates Stadium",
		Source: "slow",
	}}}
	fast := &fakeSource{name: "fast", events: []model.RawEvent{{
		Name:   "Fast Gig",
		Date:   time.Date(2026, 11, 1, 20, 0, 0, 0, time.UTC),
		Venue:  "Wembley Arena",
		Source: "fast",
	}}}

	o := NewOrchestrator(newRegistry(slow, fast), unboundedLimiter(), fusion.NewScorer(nil))
	res, err := o.Aggregate(context.Background(), model.Criteria{model.CriteriaKeyword: "gig"}, SearchOpts{})
	require.NoError(t, err)

	require.Len(t, res.Events, 2)
	assert.Equal(t, "Slow Gig", res.Events[0].Name)
	assert.Equal(t, "Fast Gig", res.Events[1].Name)
	assert.Equal(t, []string{"slow", "fast"}, res.Queried)
	assert.Equal(t, 2, res.RawCount)
	assert.NotEmpty(t, res.SearchID)
}

func TestAggregate_FailureIsolation(t *testing.T) {
	ok1 := &fakeSource{name: "ok1", events: []model.RawEvent{ev("A", "ok1")}}
	bad := &fakeSource{name: "bad", err: eris.New("upstream 500")}
	ok2 := &fakeSource{name: "ok2", events: []model.RawEvent{ev("B", "ok2")}}
	rec := newSpyRecorder()

	o := NewOrchestrator(newRegistry(ok1, bad, ok2), unboundedLimiter(), fusion.NewScorer(nil), WithRecorder(rec))
	res, err := o.Aggregate(context.Background(), model.Criteria{}, SearchOpts{})
	require.NoError(t, err)

	assert.Equal(t, []string{"ok1", "ok2"}, res.Queried)
	assert.Equal(t, []string{"bad"}, res.Failed)
	assert.Len(t, res.Events, 2)
	assert.Equal(t, "transport", rec.failures["bad"])
	assert.Equal(t, 1, rec.successes["ok1"])
}

func TestAggregate_TaskTimeout(t *testing.T) {
	hang := &fakeSource{name: "hang", delay: time.Second}
	quick := &fakeSource{name: "quick", events: []model.RawEvent{ev("Q", "quick")}}
	rec := newSpyRecorder()

	o := NewOrchestrator(newRegistry(hang, quick), unboundedLimiter(), fusion.NewScorer(nil),
		WithRecorder(rec),
		WithTaskTimeout(20*time.Millisecond),
	)
	res, err := o.Aggregate(context.Background(), model.Criteria{}, SearchOpts{})
	require.NoError(t, err)

	assert.Equal(t, []string{"hang"}, res.Failed)
	assert.Equal(t, []string{"quick"}, res.Queried)
	assert.Equal(t, "timeout", rec.failures["hang"])
}

func TestAggregate_AdmissionSkip(t *testing.T) {
	blocked := &fakeSource{name: "blocked", events: []model.RawEvent{ev("X", "blocked")}}
	open := &fakeSource{name: "open", events: []model.RawEvent{ev("Y", "open")}}

	clock := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), map[string]ratelimit.Thresholds{
		"blocked": {PerSecond: 1},
	}).WithNow(func() time.Time { return clock })

	// Saturate the blocked source's second window.
	limiter.RecordQuery(context.Background(), "blocked", source.DefaultEndpoint)

	o := NewOrchestrator(newRegistry(blocked, open), limiter, fusion.NewScorer(nil))
	res, err := o.Aggregate(context.Background(), model.Criteria{}, SearchOpts{})
	require.NoError(t, err)

	assert.Equal(t, []string{"blocked"}, res.Skipped)
	assert.Equal(t, []string{"open"}, res.Queried)
	assert.False(t, blocked.wasSearched(), "skipped sources must not be queried")
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Y", res.Events[0].Name)
}

func TestAggregate_RecordsOnlySuccessfulQueries(t *testing.T) {
	good := &fakeSource{name: "good", events: []model.RawEvent{ev("A", "good")}}
	bad := &fakeSource{name: "bad", err: eris.New("boom")}

	clock := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), map[string]ratelimit.Thresholds{
		"good": {PerSecond: 1},
		"bad":  {PerSecond: 1},
	}).WithNow(func() time.Time { return clock })

	o := NewOrchestrator(newRegistry(good, bad), limiter, fusion.NewScorer(nil))
	_, err := o.Aggregate(context.Background(), model.Criteria{}, SearchOpts{})
	require.NoError(t, err)

	ctx := context.Background()
	assert.False(t, limiter.CanQuery(ctx, "good", source.DefaultEndpoint), "successful query counts")
	assert.True(t, limiter.CanQuery(ctx, "bad", source.DefaultEndpoint), "failed query must not count")
}

func TestAggregate_SequentialBatches(t *testing.T) {
	first := &fakeSource{name: "first", delay: 30 * time.Millisecond}
	second := &fakeSource{name: "second"}

	o := NewOrchestrator(newRegistry(first, second), unboundedLimiter(), fusion.NewScorer(nil),
		WithBatchSize(1),
	)
	_, err := o.Aggregate(context.Background(), model.Criteria{}, SearchOpts{})
	require.NoError(t, err)

	gap := second.startedAt().Sub(first.startedAt())
	assert.GreaterOrEqual(t, gap, 30*time.Millisecond, "next batch must wait for the previous one")
}

func TestAggregate_MergesAcrossSources(t *testing.T) {
	a := &fakeSource{name: "stubhub", events: []model.RawEvent{{
		Name:   "Arsenal vs Chelsea",
		Date:   time.Date(2026, 9, 12, 15, 0, 0, 0, time.UTC),
		Venue:  "Emirates Stadium",
		Source: "stubhub",
	}}}
	b := &fakeSource{name: "ticketmaster", events: []model.RawEvent{{
		Name:   "Arsenal vs Chelsea",
		Date:   time.Date(2026, 9, 13, 11, 0, 0, 0, time.UTC),
		Venue:  "Emirates",
		Source: "ticketmaster",
	}}}

	o := NewOrchestrator(newRegistry(a, b), unboundedLimiter(), fusion.NewScorer(nil))
	res, err := o.Aggregate(context.Background(), model.Criteria{}, SearchOpts{})
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	merged := res.Events[0]
	assert.Equal(t, model.QualityMerged, merged.DataQuality)
	assert.Equal(t, []string{"stubhub", "ticketmaster"}, merged.Sources)
	assert.Equal(t, 2, merged.SourceCount)
	// ticketmaster's reliability bonus makes it the better base
	assert.Equal(t, "ticketmaster", merged.Source)
}

func TestAggregate_UnknownSourceSelection(t *testing.T) {
	o := NewOrchestrator(newRegistry(), unboundedLimiter(), fusion.NewScorer(nil))
	_, err := o.Aggregate(context.Background(), model.Criteria{}, SearchOpts{Sources: []string{"nope"}})
	require.Error(t, err)
}

func TestAggregate_FixedSearchID(t *testing.T) {
	o := NewOrchestrator(newRegistry(), unboundedLimiter(), fusion.NewScorer(nil),
		WithIDGenerator(func() string { return "search-123" }),
	)
	res, err := o.Aggregate(context.Background(), model.Criteria{}, SearchOpts{})
	require.NoError(t, err)
	assert.Equal(t, "search-123", res.SearchID)
	assert.Empty(t, res.Events)
}
