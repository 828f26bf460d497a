// Package source defines the per-provider query interface and the
// adapters for the bundled ticket platforms.
package source

import (
	"context"
	"time"

	"github.com/hdtickets/ticketsearch/internal/model"
)

// DefaultEndpoint is the rate-limit endpoint label for event search.
// Sources with richer APIs (seat maps, event details) would add more.
const DefaultEndpoint = "search"

// Source is one external ticket-listing provider. Each implementation
// owns its criteria adaptation and response extraction; the aggregator
// never branches on source names.
type Source interface {
	// Name returns the unique source identifier (e.g. "stubhub").
	Name() string

	// Adapt translates generic criteria into the source's own parameter
	// names and injects source defaults. The input is cloned, never
	// mutated.
	Adapt(c model.Criteria) model.Criteria

	// Search queries the provider with previously adapted criteria.
	// Returned records carry this source's name and permissive defaults
	// for anything the provider omitted.
	Search(ctx context.Context, adapted model.Criteria) ([]model.RawEvent, error)
}

// applyMapping is the shared half of Adapt: renames keys per the
// source's field map and fills in configured defaults for missing keys.
func applyMapping(c model.Criteria, fieldMap, defaults map[string]string) model.Criteria {
	out := c.Clone()
	for from, to := range fieldMap {
		if v, ok := out[from]; ok {
			delete(out, from)
			out[to] = v
		}
	}
	for k, v := range defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// eventDateLayouts are tried in order when parsing provider dates. The
// platforms disagree on timestamp conventions, and some omit zones.
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseEventDate parses a provider date string, returning the zero time
// when nothing matches. Downstream similarity treats zero times as
// "unknown date": they only agree with other unknown dates.
func parseEventDate(s string) time.Time {
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
