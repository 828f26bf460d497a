package source

import (
	"context"
	"strings"

	"github.com/hdtickets/ticketsearch/internal/model"
	"github.com/hdtickets/ticketsearch/pkg/ticketmaster"
)

// Criteria keys the Ticketmaster adapter reads after adaptation.
const (
	tmKeyStartDateTime  = "startDateTime"
	tmKeyClassification = "classificationName"
)

// Ticketmaster adapts generic criteria to the Discovery API and
// extracts its events into the common record shape.
type Ticketmaster struct {
	client   *ticketmaster.Client
	fieldMap map[string]string
	defaults map[string]string
}

// NewTicketmaster wraps a Discovery API client.
func NewTicketmaster(client *ticketmaster.Client, cfg AdapterConfig) *Ticketmaster {
	return &Ticketmaster{
		client: client,
		fieldMap: mergeMaps(map[string]string{
			model.CriteriaDateFrom: tmKeyStartDateTime,
		}, cfg.FieldMap),
		defaults: mergeMaps(nil, cfg.Defaults),
	}
}

func (t *Ticketmaster) Name() string { return "ticketmaster" }

func (t *Ticketmaster) Adapt(c model.Criteria) model.Criteria {
	return applyMapping(c, t.fieldMap, t.defaults)
}

func (t *Ticketmaster) Search(ctx context.Context, adapted model.Criteria) ([]model.RawEvent, error) {
	events, err := t.client.Search(ctx, ticketmaster.Query{
		Keyword:        adapted.Keyword(),
		Classification: adapted[tmKeyClassification],
		StartDateTime:  discoveryDateTime(adapted[tmKeyStartDateTime]),
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.RawEvent, 0, len(events))
	for _, ev := range events {
		rec := model.RawEvent{
			Name:        ev.Name,
			Date:        parseEventDate(ev.Dates.Start.DateTime),
			URL:         ev.URL,
			Description: ev.Info,
			Source:      t.Name(),
		}
		if len(ev.Embedded.Venues) > 0 {
			v := ev.Embedded.Venues[0]
			rec.Venue = v.Name
			rec.Location = joinLocation(v.City.Name, v.Country.Name)
		}
		if len(ev.PriceRanges) > 0 {
			pr := ev.PriceRanges[0]
			rec.PriceMin = pr.Min
			rec.PriceMax = pr.Max
			rec.Currency = pr.Currency
		}
		out = append(out, rec)
	}
	return out, nil
}

// discoveryDateTime widens a bare date to the full ISO form the
// Discovery API insists on.
func discoveryDateTime(s string) string {
	if len(s) == len("2006-01-02") {
		return s + "T00:00:00Z"
	}
	return s
}

func joinLocation(parts ...string) string {
	var filled []string
	for _, p := range parts {
		if p != "" {
			filled = append(filled, p)
		}
	}
	return strings.Join(filled, ", ")
}
