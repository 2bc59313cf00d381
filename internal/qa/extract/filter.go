package extract

import (
	"strings"

	"github.com/concierge-labs/member-qa/internal/corpus"
	"github.com/concierge-labs/member-qa/internal/qa/entity"
)

// Filter keeps the candidates matching the question's extracted entities:
// a candidate passes when its author name contains one extracted person
// (if any were extracted) and its text contains one extracted location
// (if any were extracted), both case-insensitively. Rank order is
// preserved. When the predicate empties the list the unfiltered input is
// returned unchanged.
func Filter(cands []Candidate, ents entity.Entities) []Candidate {
	if len(ents.Persons) == 0 && len(ents.Locations) == 0 {
		return cands
	}
	filtered := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if matchesEntities(c.Message, ents) {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return cands
	}
	return filtered
}

func matchesEntities(m corpus.Message, ents entity.Entities) bool {
	if len(ents.Persons) > 0 && !containsAny(strings.ToLower(m.UserName), ents.Persons) {
		return false
	}
	if len(ents.Locations) > 0 && !containsAny(strings.ToLower(m.Text), ents.Locations) {
		return false
	}
	return true
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
