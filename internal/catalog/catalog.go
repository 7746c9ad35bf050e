// Package catalog maps provider payloads into the single result shape the API
// returns and merges per-user list membership into it.
package catalog

import (
	"strings"

	"github.com/handsomefox/media-tracker/internal/jikan"
	"github.com/handsomefox/media-tracker/internal/media"
	"github.com/handsomefox/media-tracker/internal/tmdb"
)

// Result is the unified search/feed entry. Fields a provider does not supply
// stay at their zero value.
type Result struct {
	ID            int64         `json:"id"`
	Kind          media.Kind    `json:"mediaType"`
	Title         string        `json:"title"`
	OriginalTitle string        `json:"originalTitle,omitempty"`
	Image         string        `json:"image,omitempty"`
	Synopsis      string        `json:"synopsis,omitempty"`
	Type          string        `json:"type,omitempty"`
	Score         *float64      `json:"score"`
	Genres        []string      `json:"genres"`
	Studios       []string      `json:"studios,omitempty"`
	Demographics  []string      `json:"demographics,omitempty"`
	AiredFrom     string        `json:"airedFrom,omitempty"`
	AiredTo       string        `json:"airedTo,omitempty"`
	Year          *int          `json:"year"`
	Season        string        `json:"season,omitempty"`
	Episodes      *int          `json:"episodes"`
	AiringStatus  string        `json:"status,omitempty"`
	Airing        bool          `json:"airing"`
	Duration      string        `json:"duration,omitempty"`
	AgeRating     string        `json:"rating,omitempty"`
	Rank          *int          `json:"rank,omitempty"`
	Popularity    *int          `json:"popularity,omitempty"`
	Trailer       string        `json:"trailer,omitempty"`
	Source        string        `json:"source,omitempty"`
	Broadcast     string        `json:"broadcast,omitempty"`
	InList        bool          `json:"inList"`
	UserStatus    *media.Status `json:"userStatus"`
}

func (r *Result) Ref() media.Ref {
	return media.Ref{Kind: r.Kind, ExternalID: r.ID}
}

func FromAnime(a *jikan.Anime) Result {
	res := Result{
		ID:            a.MalID,
		Kind:          media.KindAnime,
		Title:         a.DisplayTitle(),
		OriginalTitle: strings.TrimSpace(a.TitleJapanese),
		Image:         a.ImageURL(),
		Synopsis:      a.Synopsis,
		Type:          a.Type,
		Score:         a.Score,
		Genres:        jikan.Names(a.Genres),
		Studios:       jikan.Names(a.Studios),
		Demographics:  jikan.Names(a.Demographics),
		AiredFrom:     a.Aired.From,
		AiredTo:       a.Aired.To,
		Year:          a.Year,
		Season:        a.Season,
		Episodes:      a.Episodes,
		AiringStatus:  a.Status,
		Airing:        a.Airing,
		Duration:      a.Duration,
		AgeRating:     a.Rating,
		Rank:          a.Rank,
		Popularity:    a.Popularity,
		Trailer:       a.Trailer.URL,
		Source:        a.Source,
		Broadcast:     a.Broadcast.String,
	}
	if res.OriginalTitle == res.Title {
		res.OriginalTitle = ""
	}
	if res.Year == nil && len(a.Aired.From) >= 4 {
		res.Year = tmdb.ParseYear(a.Aired.From[:4])
	}
	return res
}

// FromAnimeList maps a page of anime in upstream order.
func FromAnimeList(items []jikan.Anime) []Result {
	out := make([]Result, 0, len(items))
	for i := range items {
		out = append(out, FromAnime(&items[i]))
	}
	return out
}

// FromTMDB maps a search hit; genreNames resolves the hit's genre ids, and
// ids it does not know are skipped.
func FromTMDB(r *tmdb.SearchResult, imageBase string, genreNames map[int]string) Result {
	res := Result{
		ID:        r.ID,
		Kind:      media.Kind(r.MediaType),
		Title:     r.Title,
		Synopsis:  r.Overview,
		Type:      r.MediaType,
		AiredFrom: r.ReleaseDate,
		Year:      tmdb.ParseYear(r.Year),
		Genres:    make([]string, 0, len(r.GenreIDs)),
	}
	if r.PosterPath != "" {
		res.Image = strings.TrimRight(imageBase, "/") + r.PosterPath
	}
	if r.VoteCount > 0 {
		score := r.VoteAverage
		res.Score = &score
	}
	for _, id := range r.GenreIDs {
		if name, ok := genreNames[id]; ok {
			res.Genres = append(res.Genres, name)
		}
	}
	return res
}

func FromTMDBList(items []tmdb.SearchResult, imageBase string, genreNames map[int]string) []Result {
	out := make([]Result, 0, len(items))
	for i := range items {
		out = append(out, FromTMDB(&items[i], imageBase, genreNames))
	}
	return out
}

// Refs collects the refs of results for one batched membership lookup.
func Refs(results []Result) []media.Ref {
	out := make([]media.Ref, 0, len(results))
	for i := range results {
		out = append(out, results[i].Ref())
	}
	return out
}

// Merge returns a copy of results with the list flags set from membership.
// The input slice is left untouched since it may be shared through the cache.
func Merge(results []Result, membership map[media.Ref]media.Status) []Result {
	out := make([]Result, len(results))
	copy(out, results)
	for i := range out {
		out[i].InList = false
		out[i].UserStatus = nil
		status, ok := membership[out[i].Ref()]
		if !ok {
			continue
		}
		out[i].InList = true
		out[i].UserStatus = &status
	}
	return out
}

// Dedupe keeps the first result per (kind, id) and truncates to limit when
// limit is positive.
func Dedupe(results []Result, limit int) []Result {
	seen := make(map[media.Ref]struct{}, len(results))
	out := make([]Result, 0, len(results))
	for i := range results {
		ref := results[i].Ref()
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, results[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
