package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/media-tracker/internal/catalog"
	"github.com/handsomefox/media-tracker/internal/jikan"
	"github.com/handsomefox/media-tracker/internal/media"
	"github.com/handsomefox/media-tracker/internal/tmdb"
)

func TestFromAnimeMapsOptionalFields(t *testing.T) {
	episodes := 64
	score := 9.1
	a := jikan.Anime{
		MalID:         5114,
		Title:         "Hagane no Renkinjutsushi: Fullmetal Alchemist",
		TitleEnglish:  "Fullmetal Alchemist: Brotherhood",
		TitleJapanese: "鋼の錬金術師 FULLMETAL ALCHEMIST",
		Episodes:      &episodes,
		Score:         &score,
		Aired:         jikan.Aired{From: "2009-04-05T00:00:00+00:00"},
		Genres:        []jikan.Named{{Name: "Action"}},
	}
	res := catalog.FromAnime(&a)

	assert.Equal(t, media.KindAnime, res.Kind)
	assert.Equal(t, "Fullmetal Alchemist: Brotherhood", res.Title)
	assert.Equal(t, 64, *res.Episodes)
	require.NotNil(t, res.Year)
	assert.Equal(t, 2009, *res.Year)
	assert.Equal(t, []string{"Action"}, res.Genres)
	assert.False(t, res.InList)
	assert.Nil(t, res.UserStatus)

	bare := catalog.FromAnime(&jikan.Anime{MalID: 1, Title: "Cowboy Bebop"})
	assert.Nil(t, bare.Episodes)
	assert.Nil(t, bare.Score)
	assert.Nil(t, bare.Year)
	assert.NotNil(t, bare.Genres)
}

func TestFromTMDBResolvesGenres(t *testing.T) {
	r := tmdb.SearchResult{
		ID: 438631, MediaType: "movie", Title: "Dune", Year: "2021",
		PosterPath: "/dune.jpg", VoteAverage: 7.8, VoteCount: 12000, GenreIDs: []int{878, 12, 999},
	}
	res := catalog.FromTMDB(&r, "https://image.tmdb.org/t/p/w500/", map[int]string{878: "Science Fiction", 12: "Adventure"})

	assert.Equal(t, media.KindMovie, res.Kind)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/dune.jpg", res.Image)
	assert.Equal(t, []string{"Science Fiction", "Adventure"}, res.Genres)
	assert.Equal(t, 2021, *res.Year)
	assert.InDelta(t, 7.8, *res.Score, 0.001)

	unrated := catalog.FromTMDB(&tmdb.SearchResult{ID: 1, MediaType: "tv", Title: "New Show"}, "", nil)
	assert.Nil(t, unrated.Score)
	assert.Empty(t, unrated.Image)
}

func TestMergeDoesNotMutateInput(t *testing.T) {
	cached := []catalog.Result{
		{ID: 1, Kind: media.KindAnime, Title: "A"},
		{ID: 2, Kind: media.KindAnime, Title: "B"},
	}
	membership := map[media.Ref]media.Status{
		{Kind: media.KindAnime, ExternalID: 2}: media.StatusWatching,
	}

	merged := catalog.Merge(cached, membership)
	require.Len(t, merged, 2)
	assert.False(t, merged[0].InList)
	assert.True(t, merged[1].InList)
	assert.Equal(t, media.StatusWatching, *merged[1].UserStatus)

	assert.False(t, cached[1].InList, "cached slice must stay user-neutral")
	assert.Nil(t, cached[1].UserStatus)

	anon := catalog.Merge(merged, nil)
	assert.False(t, anon[1].InList)
}

func TestRefs(t *testing.T) {
	refs := catalog.Refs([]catalog.Result{{ID: 7, Kind: media.KindTV}})
	assert.Equal(t, []media.Ref{{Kind: media.KindTV, ExternalID: 7}}, refs)
}

func TestDedupeKeepsFirstSeenAndTruncates(t *testing.T) {
	in := []catalog.Result{
		{ID: 1, Kind: media.KindAnime, Title: "first"},
		{ID: 2, Kind: media.KindAnime},
		{ID: 1, Kind: media.KindAnime, Title: "second"},
		{ID: 1, Kind: media.KindMovie},
		{ID: 3, Kind: media.KindAnime},
	}
	out := catalog.Dedupe(in, 3)
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, int64(2), out[1].ID)
	assert.Equal(t, media.KindMovie, out[2].Kind)

	assert.Len(t, catalog.Dedupe(in, 0), 4)
}

func TestRankSuggestionsPrefersCloserTitles(t *testing.T) {
	in := []catalog.Result{
		{ID: 1, Title: "Naruto: Shippuuden"},
		{ID: 2, Title: "Boruto"},
		{ID: 3, Title: "Naruto"},
		{ID: 4, Title: "The Last: Naruto the Movie"},
	}
	out := catalog.RankSuggestions("naruto", in, 3)
	require.Len(t, out, 3)
	assert.Equal(t, int64(3), out[0].ID)
	assert.Equal(t, int64(1), out[1].ID)
	assert.Equal(t, int64(4), out[2].ID)
}

func TestRankSuggestionsKeepsUpstreamOrderForNonMatches(t *testing.T) {
	in := []catalog.Result{
		{ID: 1, Title: "Zzz"},
		{ID: 2, Title: "Yyy"},
		{ID: 3, Title: "Frieren"},
	}
	out := catalog.RankSuggestions("frieren", in, 5)
	require.Len(t, out, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{out[0].ID, out[1].ID, out[2].ID})
}

func TestFromRecommendationsDedupesByFirstEntry(t *testing.T) {
	recs := []jikan.Recommendation{
		{Content: "same crew", Entry: []jikan.Entry{{MalID: 1, Title: "Cowboy Bebop"}, {MalID: 205, Title: "Samurai Champloo"}}},
		{Content: "again", Entry: []jikan.Entry{{MalID: 1, Title: "Cowboy Bebop"}, {MalID: 30, Title: "Trigun"}}},
		{Entry: []jikan.Entry{{MalID: 0}}},
		{Content: "space", Entry: []jikan.Entry{{MalID: 467}}},
	}
	recs[0].User.Username = "spike"

	out := catalog.FromRecommendations(recs, 0)
	require.Len(t, out, 2)
	assert.Equal(t, "Cowboy Bebop", out[0].Entry.Title)
	assert.Equal(t, "same crew", out[0].Content)
	assert.Equal(t, "spike", out[0].User)
	assert.Equal(t, "Unknown Title", out[1].Entry.Title)

	assert.Len(t, catalog.FromRecommendations(recs, 1), 1)
}
