package fusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hdtickets/ticketsearch/internal/model"
)

func floatPtr(v float64) *float64 { return &v }

func TestScore_FullRecordFromOfficialSource(t *testing.T) {
	s := NewScorer(nil)

	scored := s.Score(model.RawEvent{
		Name:        "Arsenal vs Chelsea",
		Date:        time.Date(2026, 9, 12, 15, 0, 0, 0, time.UTC),
		Venue:       "Emirates Stadium",
		URL:         "https://www.ticketmaster.com/event/123",
		PriceMin:    floatPtr(55),
		Description: "Premier League matchday 4",
		Source:      "ticketmaster",
	})
	// 20+20+15+10+10+5 completeness + 20 reliability = 100.
	assert.InDelta(t, 1.00, scored.Confidence, 1e-9)
}

func TestScore_SparseRecordFromUnlistedSource(t *testing.T) {
	s := NewScorer(nil)

	scored := s.Score(model.RawEvent{
		Name:   "Arsenal vs Chelsea",
		Date:   time.Date(2026, 9, 12, 15, 0, 0, 0, time.UTC),
		Source: "somefansite",
	})
	// 20+20 completeness + 5 default reliability = 45.
	assert.InDelta(t, 0.45, scored.Confidence, 1e-9)
}

func TestScore_FieldPoints(t *testing.T) {
	s := NewScorer(map[string]int{})

	tests := []struct {
		name string
		ev   model.RawEvent
		want float64
	}{
		{"empty record", model.RawEvent{Source: "x"}, 0.05},
		{"name only", model.RawEvent{Name: "a", Source: "x"}, 0.25},
		{"venue only", model.RawEvent{Venue: "v", Source: "x"}, 0.20},
		{"url only", model.RawEvent{URL: "u", Source: "x"}, 0.15},
		{"zero price still counts as present", model.RawEvent{PriceMin: floatPtr(0), Source: "x"}, 0.15},
		{"description only", model.RawEvent{Description: "d", Source: "x"}, 0.10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.ev).Confidence, 1e-9)
		})
	}
}

func TestScore_CapAtOne(t *testing.T) {
	// A reliability bonus above 20 would push the sum past 100; the cap
	// holds the score to 1.0.
	s := NewScorer(map[string]int{"firstparty": 40})
	scored := s.Score(model.RawEvent{
		Name:        "Arsenal vs Chelsea",
		Date:        time.Now(),
		Venue:       "Emirates",
		URL:         "https://example.com",
		PriceMin:    floatPtr(10),
		Description: "d",
		Source:      "firstparty",
	})
	assert.InDelta(t, 1.0, scored.Confidence, 1e-9)
}

func TestScoreAll_PreservesOrder(t *testing.T) {
	s := NewScorer(nil)
	in := []model.RawEvent{
		{Name: "first", Source: "stubhub"},
		{Name: "second", Source: "viagogo"},
	}
	out := s.ScoreAll(in)
	assert.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Name)
	assert.Equal(t, "second", out[1].Name)
}
