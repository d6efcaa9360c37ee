package rank

import (
	"strings"

	"github.com/poiesic/wayfarer/core"
)

// Keyword computes the textual match score between a query and one candidate.
//
// The score is deliberately binary: 1.0 when any detected category keyword
// (or, absent a detected category, any non-stopword query token) appears in
// the candidate's text fields, else 0.0. No interpolation keeps tie-breaking
// auditable.
func Keyword(query string, keywords []string, entity *core.Entity) float64 {
	if entity == nil {
		return 0.0
	}

	haystack := candidateText(entity)

	terms := keywords
	if len(terms) == 0 {
		terms = tokenizeAndFilter(query)
	}

	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(term)) {
			return 1.0
		}
	}
	return 0.0
}

// candidateText joins the entity's searchable fields into one lowercase string.
func candidateText(entity *core.Entity) string {
	parts := []string{
		entity.Name,
		entity.Category,
		entity.Description,
		entity.Address,
		entity.Attraction.Label(),
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}
