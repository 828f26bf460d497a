// Package ticketmaster is a thin client for the Ticketmaster Discovery
// v2 API.
package ticketmaster

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://app.ticketmaster.com/discovery/v2"

// Query holds the discovery search parameters.
type Query struct {
	Keyword        string
	Classification string // e.g. "sports"; empty = all
	StartDateTime  string // ISO-8601, optional
	Size           int    // 0 = default 50
}

// Event is one event from the discovery feed.
type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	Info        string      `json:"info"`
	Dates       Dates       `json:"dates"`
	PriceRanges []Price     `json:"priceRanges"`
	Embedded    SubEmbedded `json:"_embedded"`
}

// Dates carries the event start time.
type Dates struct {
	Start struct {
		DateTime string `json:"dateTime"`
	} `json:"start"`
}

// Price is one advertised price range.
type Price struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
}

// SubEmbedded nests venue details under each event.
type SubEmbedded struct {
	Venues []VenueDetail `json:"venues"`
}

// VenueDetail identifies the venue and its location.
type VenueDetail struct {
	Name string `json:"name"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	Country struct {
		Name string `json:"name"`
	} `json:"country"`
}

type searchResponse struct {
	Embedded struct {
		Events []Event `json:"events"`
	} `json:"_embedded"`
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithPacing overrides the politeness interval between requests.
func WithPacing(interval time.Duration) Option {
	return func(c *Client) { c.pacer = rate.NewLimiter(rate.Every(interval), 1) }
}

// Client queries the Discovery API.
type Client struct {
	apiKey  string
	baseURL string
	http    *resty.Client
	pacer   *rate.Limiter
}

// NewClient creates a Discovery API client. The API key is mandatory;
// callers without one should not register the source at all.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "HDTickets/1.0"),
		pacer: rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a discovery event search.
func (c *Client) Search(ctx context.Context, q Query) ([]Event, error) {
	if c.apiKey == "" {
		return nil, eris.New("ticketmaster: api key not configured")
	}
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "ticketmaster: pacing wait")
	}

	size := q.Size
	if size <= 0 {
		size = 50
	}
	params := map[string]string{
		"keyword": q.Keyword,
		"apikey":  c.apiKey,
		"size":    strconv.Itoa(size),
		"sort":    "date,asc",
	}
	if q.Classification != "" {
		params["classificationName"] = q.Classification
	}
	if q.StartDateTime != "" {
		params["startDateTime"] = q.StartDateTime
	}

	var result searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		Get(c.baseURL + "/events.json")
	if err != nil {
		return nil, eris.Wrap(err, "ticketmaster: search request")
	}
	if resp.IsError() {
		return nil, eris.Errorf("ticketmaster: search returned status %d", resp.StatusCode())
	}
	return result.Embedded.Events, nil
}
