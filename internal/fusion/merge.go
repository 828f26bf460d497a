package fusion

import (
	"github.com/hdtickets/ticketsearch/internal/model"
)

// Merger collapses similarity groups into canonical merged records.
type Merger struct{}

// NewMerger creates a record merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge produces the canonical record for one group.
//
// A single-member group passes through untouched: the record's fields are
// carried verbatim, no sources or price variations are attached, and the
// quality is "single". Multi-member groups are based on the member with
// the highest confidence (first encountered wins ties) and annotated with
// every member's source and price range.
func (m *Merger) Merge(group model.Group) model.MergedEvent {
	if len(group) == 0 {
		return model.MergedEvent{DataQuality: model.QualitySingle}
	}

	if len(group) == 1 {
		return model.MergedEvent{
			RawEvent:    group[0].RawEvent,
			Confidence:  group[0].Confidence,
			DataQuality: model.QualitySingle,
			SourceCount: 1,
		}
	}

	base := group[0]
	for _, member := range group[1:] {
		if member.Confidence > base.Confidence {
			base = member
		}
	}

	merged := model.MergedEvent{
		RawEvent:    base.RawEvent,
		Confidence:  base.Confidence,
		DataQuality: model.QualityMerged,
		SourceCount: len(group),
	}

	for _, member := range group {
		merged.Sources = append(merged.Sources, member.Source)
		if member.PriceMin != nil || member.PriceMax != nil {
			merged.PriceVariations = append(merged.PriceVariations, model.PriceVariation{
				Source: member.Source,
				Min:    member.PriceMin,
				Max:    member.PriceMax,
			})
		}
		if merged.URL == "" && member.URL != "" {
			merged.URL = member.URL
		}
	}

	// Aggregate price bounds over the pooled min AND max values of every
	// variation, matching the reference behavior: a source's max can
	// become the merged min when it undercuts everyone else's prices.
	var low, high *float64
	for _, pv := range merged.PriceVariations {
		for _, p := range []*float64{pv.Min, pv.Max} {
			if p == nil {
				continue
			}
			if low == nil || *p < *low {
				v := *p
				low = &v
			}
			if high == nil || *p > *high {
				v := *p
				high = &v
			}
		}
	}
	if low != nil {
		merged.PriceMin = low
		merged.PriceMax = high
	}

	return merged
}

// MergeAll merges every group, preserving group order.
func (m *Merger) MergeAll(groups []model.Group) []model.MergedEvent {
	out := make([]model.MergedEvent, 0, len(groups))
	for _, g := range groups {
		out = append(out, m.Merge(g))
	}
	return out
}
