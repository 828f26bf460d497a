package fusion

import (
	"time"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"

	"github.com/hdtickets/ticketsearch/internal/model"
)

// Similarity weights and the inclusive grouping threshold.
const (
	weightName  = 0.5
	weightDate  = 0.3
	weightVenue = 0.2

	// SimilarityThreshold is the minimum weighted score for two records
	// to be considered the same event.
	SimilarityThreshold = 0.70

	// sameEventWindow is the maximum date gap for the binary date check.
	// Sources disagree on timezones and doors-vs-kickoff times, so a full
	// day of slack is allowed.
	sameEventWindow = 24 * time.Hour
)

var fold = cases.Fold()

// Matcher clusters scored records into groups of records believed to
// describe the same real-world event.
type Matcher struct{}

// NewMatcher creates a similarity matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Group performs a greedy single-pass clustering (O(n²) comparisons):
// the first unprocessed record anchors a new group and every later
// unprocessed record similar to that anchor joins it. Candidates are
// compared against the anchor only, never pairwise within the growing
// group — a deliberate simplification, not an equivalence-class
// computation, so chains of near-duplicates may split across groups.
// Groups are emitted in the order they were opened.
func (m *Matcher) Group(records []model.ScoredEvent) []model.Group {
	processed := make([]bool, len(records))
	var groups []model.Group

	for i, anchor := range records {
		if processed[i] {
			continue
		}
		processed[i] = true
		group := model.Group{anchor}

		for j := i + 1; j < len(records); j++ {
			if processed[j] {
				continue
			}
			if m.Similar(anchor.RawEvent, records[j].RawEvent) {
				group = append(group, records[j])
				processed[j] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// Similar reports whether two records pass the weighted similarity
// threshold. The formula is symmetric in its arguments.
func (m *Matcher) Similar(a, b model.RawEvent) bool {
	return m.Similarity(a, b) >= SimilarityThreshold
}

// Similarity computes the weighted similarity score:
// 0.5·name + 0.3·date + 0.2·venue.
func (m *Matcher) Similarity(a, b model.RawEvent) float64 {
	score := weightName * editSimilarity(a.Name, b.Name)

	// Binary date check. Unparseable dates arrive as zero times, which
	// compare far from any real date and equal to each other.
	if absDiff(a.Date, b.Date) <= sameEventWindow {
		score += weightDate
	}

	// Venue only contributes when both sides actually report one.
	if a.Venue != "" && b.Venue != "" {
		score += weightVenue * editSimilarity(a.Venue, b.Venue)
	}
	return score
}

// editSimilarity is a case-folded edit distance normalized into [0, 1]:
// 1 − distance / max(len(a), len(b), 1). Empty strings compare as equal.
func editSimilarity(a, b string) float64 {
	a = fold.String(a)
	b = fold.String(b)

	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		longest = 1
	}

	dist := levenshtein.Distance(a, b, nil)
	return 1 - float64(dist)/float64(longest)
}

func absDiff(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
