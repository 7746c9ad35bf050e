package catalog

import (
	"strings"

	"github.com/handsomefox/media-tracker/internal/jikan"
	"github.com/handsomefox/media-tracker/internal/media"
)

// Recommendation is one user-written pairing from the recommendations feed,
// reduced to the recommended title.
type Recommendation struct {
	Entry   Result `json:"entry"`
	Content string `json:"content"`
	User    string `json:"user"`
}

// FromRecommendations keeps the first entry of each pairing and drops
// pairings whose entry was already seen, preserving upstream order.
func FromRecommendations(recs []jikan.Recommendation, limit int) []Recommendation {
	seen := make(map[int64]struct{}, len(recs))
	out := make([]Recommendation, 0, len(recs))
	for _, rec := range recs {
		if len(rec.Entry) == 0 || rec.Entry[0].MalID == 0 {
			continue
		}
		e := rec.Entry[0]
		if _, ok := seen[e.MalID]; ok {
			continue
		}
		seen[e.MalID] = struct{}{}

		title := strings.TrimSpace(e.Title)
		if title == "" {
			title = "Unknown Title"
		}
		out = append(out, Recommendation{
			Entry: Result{
				ID:     e.MalID,
				Kind:   media.KindAnime,
				Title:  title,
				Image:  e.Images.JPG.ImageURL,
				Genres: []string{},
			},
			Content: rec.Content,
			User:    rec.User.Username,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
