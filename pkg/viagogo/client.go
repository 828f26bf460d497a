// Package viagogo is a thin client for the Viagogo listings API.
package viagogo

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.viagogo.com/api/v2"

// Query holds the listing search parameters.
type Query struct {
	Keyword string
	Limit   int // 0 = default 50
}

// Listing is one event listing.
type Listing struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Venue     string   `json:"venue"`
	City      string   `json:"city"`
	StartDate string   `json:"start_date"`
	MinPrice  *float64 `json:"min_price"`
	MaxPrice  *float64 `json:"max_price"`
	Currency  string   `json:"currency"`
	URL       string   `json:"url"`
}

type searchResponse struct {
	Items []Listing `json:"items"`
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

// Client queries Viagogo listings. Viagogo's full API wants OAuth; the
// access token is passed straight through as a bearer header and
// refreshing it is the caller's problem.
type Client struct {
	token   string
	baseURL string
	http    *resty.Client
	pacer   *rate.Limiter
}

// NewClient creates a Viagogo client.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second).
			SetHeader("Accept", "application/json"),
		pacer: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a listing search.
func (c *Client) Search(ctx context.Context, q Query) ([]Listing, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "viagogo: pacing wait")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     q.Keyword,
			"sort":  "price",
			"limit": strconv.Itoa(limit),
		})
	if c.token != "" {
		req.SetAuthToken(c.token)
	}

	var result searchResponse
	resp, err := req.SetResult(&result).Get(c.baseURL + "/search")
	if err != nil {
		return nil, eris.Wrap(err, "viagogo: search request")
	}
	if resp.IsError() {
		return nil, eris.Errorf("viagogo: search returned status %d", resp.StatusCode())
	}
	return result.Items, nil
}
