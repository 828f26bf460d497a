package model

import "time"

// DataQuality describes how a merged event was assembled.
type DataQuality string

const (
	// QualitySingle means only one source reported the event.
	QualitySingle DataQuality = "single"
	// QualityMerged means the event was fused from multiple sources.
	QualityMerged DataQuality = "merged"
)

// RawEvent is one source's view of one event. Produced by a source client
// and never mutated afterwards; missing fields stay at their zero values
// and simply score lower downstream.
type RawEvent struct {
	Name        string    `json:"name"`
	Date        time.Time `json:"date"`
	Venue       string    `json:"venue"`
	Location    string    `json:"location,omitempty"`
	PriceMin    *float64  `json:"price_min,omitempty"`
	PriceMax    *float64  `json:"price_max,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source"`
}

// ScoredEvent is a RawEvent plus its confidence score in [0, 1].
type ScoredEvent struct {
	RawEvent
	Confidence float64 `json:"confidence"`
}

// Group is an ordered cluster of scored records believed to describe the
// same real-world event. Produced by the matcher, consumed once by the
// merger.
type Group []ScoredEvent

// PriceVariation records one source's price range for a merged event.
type PriceVariation struct {
	Source string   `json:"source"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// MergedEvent is the canonical de-duplicated output record. Field values
// come from the highest-confidence group member; Sources and
// PriceVariations are only populated when more than one source
// contributed.
type MergedEvent struct {
	RawEvent
	Confidence      float64          `json:"confidence"`
	Sources         []string         `json:"sources,omitempty"`
	PriceVariations []PriceVariation `json:"price_variations,omitempty"`
	DataQuality     DataQuality      `json:"data_quality"`
	SourceCount     int              `json:"source_count"`
}
