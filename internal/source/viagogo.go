package source

import (
	"context"

	"github.com/hdtickets/ticketsearch/internal/model"
	"github.com/hdtickets/ticketsearch/pkg/viagogo"
)

// Viagogo adapts generic criteria to Viagogo's listing search and
// extracts its listings into the common record shape. Viagogo only
// filters server-side by keyword; date and price criteria are dropped
// during adaptation and applied downstream.
type Viagogo struct {
	client   *viagogo.Client
	fieldMap map[string]string
	defaults map[string]string
}

// NewViagogo wraps a Viagogo client.
func NewViagogo(client *viagogo.Client, cfg AdapterConfig) *Viagogo {
	return &Viagogo{
		client:   client,
		fieldMap: mergeMaps(nil, cfg.FieldMap),
		defaults: mergeMaps(nil, cfg.Defaults),
	}
}

func (v *Viagogo) Name() string { return "viagogo" }

func (v *Viagogo) Adapt(c model.Criteria) model.Criteria {
	return applyMapping(c, v.fieldMap, v.defaults)
}

func (v *Viagogo) Search(ctx context.Context, adapted model.Criteria) ([]model.RawEvent, error) {
	listings, err := v.client.Search(ctx, viagogo.Query{Keyword: adapted.Keyword()})
	if err != nil {
		return nil, err
	}

	out := make([]model.RawEvent, 0, len(listings))
	for _, l := range listings {
		out = append(out, model.RawEvent{
			Name:     l.Title,
			Date:     parseEventDate(l.StartDate),
			Venue:    l.Venue,
			Location: l.City,
			PriceMin: l.MinPrice,
			PriceMax: l.MaxPrice,
			Currency: l.Currency,
			URL:      l.URL,
			Source:   v.Name(),
		})
	}
	return out, nil
}
