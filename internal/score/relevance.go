package score

import (
	"sort"
	"strings"

	"github.com/akraskov/veridict/internal/model"
	"github.com/akraskov/veridict/internal/search"
)

// relevanceThreshold is the minimum score a candidate must exceed to
// survive ranking.
const relevanceThreshold = 0.1

// Relevance scores one candidate against the claim's entities as the
// fraction of entities found in its title and summary. Search-result
// pages score zero regardless of text overlap.
func Relevance(c model.Candidate, entities []string) float64 {
	if search.IsSearchPage(c.URL) {
		return 0.0
	}

	text := strings.ToLower(c.Title + " " + c.Summary)

	hits := 0
	for _, entity := range entities {
		if strings.Contains(text, strings.ToLower(entity)) {
			hits++
		}
	}

	denom := len(entities)
	if denom < 1 {
		denom = 1
	}
	return float64(hits) / float64(denom)
}

// Rank deduplicates candidates by URL (first occurrence wins), scores
// each against the entities, drops everything at or below the relevance
// threshold, and returns the survivors ordered best first. Ties keep
// their retrieval order.
func Rank(candidates []model.Candidate, entities []string) []model.ScoredCandidate {
	seen := make(map[string]bool, len(candidates))

	var ranked []model.ScoredCandidate
	for _, c := range candidates {
		if c.URL == "" || seen[c.URL] {
			continue
		}
		seen[c.URL] = true

		s := Relevance(c, entities)
		if s <= relevanceThreshold {
			continue
		}

		ranked = append(ranked, model.ScoredCandidate{
			Candidate:      c,
			RelevanceScore: s,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	return ranked
}
