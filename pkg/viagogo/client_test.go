package viagogo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_ParsesListings(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id":         "vg1",
					"title":      "Manchester United vs Liverpool",
					"venue":      "Old Trafford",
					"city":       "Manchester",
					"start_date": "2026-10-03T16:30:00Z",
					"min_price":  95.0,
					"max_price":  480.0,
					"currency":   "GBP",
					"url":        "https://viagogo.com/e/vg1",
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("tok123", WithBaseURL(srv.URL), WithPacing(time.Millisecond))
	listings, err := c.Search(context.Background(), Query{Keyword: "Manchester United"})
	require.NoError(t, err)
	require.Len(t, listings, 1)

	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "Manchester United vs Liverpool", listings[0].Title)
	assert.Equal(t, "Old Trafford", listings[0].Venue)
	require.NotNil(t, listings[0].MinPrice)
	assert.InDelta(t, 95.0, *listings[0].MinPrice, 1e-9)
}

func TestSearch_NoTokenStillQueries(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithPacing(time.Millisecond))
	listings, err := c.Search(context.Background(), Query{Keyword: "x"})
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.Empty(t, gotAuth)
}

func TestSearch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("tok", WithBaseURL(srv.URL), WithPacing(time.Millisecond))
	_, err := c.Search(context.Background(), Query{Keyword: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
