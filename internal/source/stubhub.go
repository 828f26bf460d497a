package source

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/hdtickets/ticketsearch/internal/model"
	"github.com/hdtickets/ticketsearch/pkg/stubhub"
)

// Criteria keys the StubHub adapter reads after adaptation.
const (
	stubhubKeyMaxPrice  = "maxPrice"
	stubhubKeyDateLocal = "dateLocal"
)

// StubHub adapts generic criteria to StubHub's catalog search and
// extracts its events into the common record shape.
type StubHub struct {
	client   *stubhub.Client
	fieldMap map[string]string
	defaults map[string]string
}

// NewStubHub wraps a StubHub client. Config field maps and defaults
// override the built-in ones.
func NewStubHub(client *stubhub.Client, cfg AdapterConfig) *StubHub {
	return &StubHub{
		client: client,
		fieldMap: mergeMaps(map[string]string{
			model.CriteriaPriceMax: stubhubKeyMaxPrice,
			model.CriteriaDateFrom: stubhubKeyDateLocal,
		}, cfg.FieldMap),
		defaults: mergeMaps(nil, cfg.Defaults),
	}
}

func (s *StubHub) Name() string { return "stubhub" }

func (s *StubHub) Adapt(c model.Criteria) model.Criteria {
	return applyMapping(c, s.fieldMap, s.defaults)
}

func (s *StubHub) Search(ctx context.Context, adapted model.Criteria) ([]model.RawEvent, error) {
	q := stubhub.Query{
		Keyword:   adapted.Keyword(),
		DateLocal: adapted[stubhubKeyDateLocal],
	}
	if v := adapted[stubhubKeyMaxPrice]; v != "" {
		maxPrice, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "stubhub adapter: bad max price %q", v)
		}
		q.MaxPrice = maxPrice
	}

	events, err := s.client.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]model.RawEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, model.RawEvent{
			Name:     ev.Name,
			Date:     parseEventDate(ev.EventDateLocal),
			Venue:    ev.Venue.Name,
			Location: ev.Venue.City,
			PriceMin: ev.TicketInfo.MinListPrice,
			PriceMax: ev.TicketInfo.MaxListPrice,
			Currency: ev.TicketInfo.CurrencyCode,
			URL:      ev.WebURI,
			Source:   s.Name(),
		})
	}
	return out, nil
}

// mergeMaps layers overrides on top of base without mutating either.
func mergeMaps(base, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}
