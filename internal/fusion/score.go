package fusion

import (
	"github.com/hdtickets/ticketsearch/internal/model"
)

// Completeness points per populated field. The maximum achievable raw sum
// including the best reliability bonus is exactly 100.
const (
	pointsName        = 20
	pointsDate        = 20
	pointsVenue       = 15
	pointsURL         = 10
	pointsPriceMin    = 10
	pointsDescription = 5

	defaultReliability = 5
)

// DefaultReliability is the per-source reliability bonus table. Official
// APIs rank above marketplaces; sources absent from the table get a flat
// default.
var DefaultReliability = map[string]int{
	"ticketmaster": 20,
	"stubhub":      15,
	"viagogo":      10,
}

// Scorer assigns a completeness/reliability confidence to raw records.
type Scorer struct {
	reliability map[string]int
}

// NewScorer creates a scorer with the given reliability table; nil uses
// DefaultReliability.
func NewScorer(reliability map[string]int) *Scorer {
	if reliability == nil {
		reliability = DefaultReliability
	}
	return &Scorer{reliability: reliability}
}

// Score returns ev with its confidence in [0, 1] attached. The score is
// additive field-presence points plus one source bonus, divided by 100;
// the 1.0 cap is a safety bound, not a normal-path clamp.
func (s *Scorer) Score(ev model.RawEvent) model.ScoredEvent {
	sum := 0
	if ev.Name != "" {
		sum += pointsName
	}
	if !ev.Date.IsZero() {
		sum += pointsDate
	}
	if ev.Venue != "" {
		sum += pointsVenue
	}
	if ev.URL != "" {
		sum += pointsURL
	}
	if ev.PriceMin != nil {
		sum += pointsPriceMin
	}
	if ev.Description != "" {
		sum += pointsDescription
	}

	if bonus, ok := s.reliability[ev.Source]; ok {
		sum += bonus
	} else {
		sum += defaultReliability
	}

	conf := float64(sum) / 100
	if conf > 1.0 {
		conf = 1.0
	}
	return model.ScoredEvent{RawEvent: ev, Confidence: conf}
}

// ScoreAll scores records preserving input order.
func (s *Scorer) ScoreAll(events []model.RawEvent) []model.ScoredEvent {
	out := make([]model.ScoredEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, s.Score(ev))
	}
	return out
}
