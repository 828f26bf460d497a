// Package stubhub is a thin client for the StubHub catalog search API.
package stubhub

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.stubhub.com/api/search/catalog/events/v3"

// Query holds the search parameters StubHub understands.
type Query struct {
	Keyword   string
	MaxPrice  float64 // 0 = no ceiling
	DateLocal string  // yyyy-mm-dd, optional
	Rows      int     // 0 = default 50
}

// Event is one event as returned by the catalog search.
type Event struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Venue          Venue      `json:"venue"`
	EventDateLocal string     `json:"eventDateLocal"`
	TicketInfo     TicketInfo `json:"ticketInfo"`
	WebURI         string     `json:"webURI"`
}

// Venue identifies where the event takes place.
type Venue struct {
	Name string `json:"name"`
	City string `json:"city"`
}

// TicketInfo carries the listing price summary.
type TicketInfo struct {
	MinListPrice *float64 `json:"minListPrice"`
	MaxListPrice *float64 `json:"maxListPrice"`
	CurrencyCode string   `json:"currencyCode"`
	TotalTickets int      `json:"totalTickets"`
}

type searchResponse struct {
	Events []Event `json:"events"`
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the catalog endpoint (tests point this at httptest).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithPacing overrides the politeness interval between requests.
func WithPacing(interval time.Duration) Option {
	return func(c *Client) { c.pacer = rate.NewLimiter(rate.Every(interval), 1) }
}

// Client queries the StubHub catalog.
type Client struct {
	baseURL string
	http    *resty.Client
	pacer   *rate.Limiter
}

// NewClient creates a StubHub client. StubHub has no API key for catalog
// search but is aggressive about burst traffic, so requests are paced.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		pacer: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a catalog search and returns the raw events.
func (c *Client) Search(ctx context.Context, q Query) ([]Event, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "stubhub: pacing wait")
	}

	rows := q.Rows
	if rows <= 0 {
		rows = 50
	}
	params := map[string]string{
		"q":     q.Keyword,
		"sort":  "price_asc",
		"rows":  strconv.Itoa(rows),
		"start": "0",
	}
	if q.MaxPrice > 0 {
		params["maxPrice"] = strconv.FormatFloat(q.MaxPrice, 'f', -1, 64)
	}
	if q.DateLocal != "" {
		params["dateLocal"] = q.DateLocal
	}

	var result searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		Get(c.baseURL)
	if err != nil {
		return nil, eris.Wrap(err, "stubhub: search request")
	}
	if resp.IsError() {
		return nil, eris.Errorf("stubhub: search returned status %d", resp.StatusCode())
	}
	return result.Events, nil
}
