package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hdtickets/ticketsearch/internal/aggregator"
	"github.com/hdtickets/ticketsearch/internal/fusion"
	"github.com/hdtickets/ticketsearch/internal/model"
	"github.com/hdtickets/ticketsearch/internal/monitoring"
	"github.com/hdtickets/ticketsearch/internal/ratelimit"
	"github.com/hdtickets/ticketsearch/internal/source"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type apiFakeSource struct {
	name   string
	events []model.RawEvent
}

func (f *apiFakeSource) Name() string                               { return f.name }
func (f *apiFakeSource) Adapt(c model.Criteria) model.Criteria      { return c.Clone() }
func (f *apiFakeSource) Search(context.Context, model.Criteria) ([]model.RawEvent, error) {
	return f.events, nil
}

func newTestEnv(t *testing.T) (*env, *prometheus.Registry) {
	t.Helper()

	reg := source.NewRegistry()
	reg.Register(&apiFakeSource{name: "stubhub", events: []model.RawEvent{{
		Name:   "Arsenal vs Chelsea",
		Date:   time.Date(2026, 9, 12, 15, 0, 0, 0, time.UTC),
		Venue:  "Emirates Stadium",
		Source: "stubhub",
	}}})

	store := ratelimit.NewMemoryStore()
	limiter := ratelimit.NewLimiter(store, nil)
	promReg := prometheus.NewRegistry()
	orch := aggregator.NewOrchestrator(reg, limiter, fusion.NewScorer(nil),
		aggregator.WithRecorder(monitoring.NewPromRecorder(promReg)),
	)

	return &env{
		Store:     store,
		SrcConfig: &source.Config{Aliases: map[string]string{"arsenal": "Arsenal FC"}},
		Registry:  reg,
		Limiter:   limiter,
		Orch:      orch,
	}, promReg
}

func TestServeHealth(t *testing.T) {
	e, promReg := newTestEnv(t)
	router := newRouter(e, promReg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeSearch(t *testing.T) {
	e, promReg := newTestEnv(t)
	router := newRouter(e, promReg)

	body, _ := json.Marshal(searchRequest{Keyword: "arsenal"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var res aggregator.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Events, 1)
	assert.Equal(t, "Arsenal vs Chelsea", res.Events[0].Name)
	assert.Equal(t, model.QualitySingle, res.Events[0].DataQuality)
	assert.Equal(t, "Arsenal FC", res.Criteria.Keyword(), "aliases apply before dispatch")
	assert.Equal(t, []string{"stubhub"}, res.Queried)
}

func TestServeSearch_BadRequests(t *testing.T) {
	e, promReg := newTestEnv(t)
	router := newRouter(e, promReg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(`{"keyword":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "keyword is required")
}

func TestServeSources(t *testing.T) {
	e, promReg := newTestEnv(t)
	router := newRouter(e, promReg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sources", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var states []struct {
		Name     string `json:"name"`
		Admitted bool   `json:"admitted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	require.Len(t, states, 1)
	assert.Equal(t, "stubhub", states[0].Name)
	assert.True(t, states[0].Admitted)
}

func TestServeMetrics(t *testing.T) {
	e, promReg := newTestEnv(t)
	router := newRouter(e, promReg)

	// Drive one search so the counters exist.
	body, _ := json.Marshal(searchRequest{Keyword: "arsenal"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ticketsearch_source_queries_success_total")
}
