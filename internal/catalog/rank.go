package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const noMatch = 1 << 30

// RankSuggestions orders results by how well their titles match query and
// returns at most n of them. Titles that do not match at all keep their
// upstream order after every match.
func RankSuggestions(query string, results []Result, n int) []Result {
	query = strings.ToLower(strings.TrimSpace(query))

	type ranked struct {
		res   Result
		score int
	}
	list := make([]ranked, 0, len(results))
	for i := range results {
		list = append(list, ranked{res: results[i], score: matchScore(query, &results[i])})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].score < list[j].score
	})

	if n <= 0 || n > len(list) {
		n = len(list)
	}
	out := make([]Result, 0, n)
	for _, r := range list[:n] {
		out = append(out, r.res)
	}
	return out
}

// Lower is better.
func matchScore(query string, r *Result) int {
	best := noMatch
	for _, title := range []string{r.Title, r.OriginalTitle} {
		title = strings.ToLower(strings.TrimSpace(title))
		if title == "" {
			continue
		}
		var score int
		switch {
		case title == query:
			score = 0
		case strings.HasPrefix(title, query):
			score = 10
		case strings.Contains(title, query):
			score = 50
		default:
			distance := fuzzy.RankMatchNormalizedFold(query, title)
			if distance < 0 {
				continue
			}
			score = 100 + distance
		}
		best = min(best, score)
	}
	return best
}
