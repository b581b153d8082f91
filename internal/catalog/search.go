package catalog

import "strings"

// Search scores every tool in the catalog against query by whitespace
// token overlap (case-insensitive) and returns the top limit results,
// sorted by score descending with catalog order breaking ties. Resolves
// the "search_commands returns a fixed stub" open question (SPEC_FULL.md
// §9, item 3).
func (c *Catalog) Search(query string, limit int) []SearchResult {
	queryTokens := tokenize(query)
	results := make([]SearchResult, 0, len(c.tools))
	for _, t := range c.tools {
		score := overlapScore(queryTokens, tokenize(t.Name+" "+t.Description))
		if score == 0 {
			continue
		}
		results = append(results, SearchResult{Name: t.Name, Description: t.Description, Score: score})
	}
	SortByScoreDesc(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		tokens[f] = true
	}
	return tokens
}

func overlapScore(query, candidate map[string]bool) int {
	score := 0
	for t := range query {
		if candidate[t] {
			score++
		}
	}
	return score
}
