package model

import "maps"

// Criteria is the caller-supplied search filter set. Keys are generic
// filter names (keyword, date_from, date_to, price_max, location); each
// source adapter translates them into its own parameter names. The engine
// never validates business rules, it only passes values through
// adaptation.
type Criteria map[string]string

// Well-known criteria keys understood by the bundled source adapters.
const (
	CriteriaKeyword  = "keyword"
	CriteriaDateFrom = "date_from"
	CriteriaDateTo   = "date_to"
	CriteriaPriceMax = "price_max"
	CriteriaLocation = "location"
)

// Clone returns an independent copy so per-source adaptation never
// mutates the caller's map.
func (c Criteria) Clone() Criteria {
	out := make(Criteria, len(c))
	maps.Copy(out, c)
	return out
}

// Keyword returns the free-text search term, empty if unset.
func (c Criteria) Keyword() string {
	return c[CriteriaKeyword]
}
