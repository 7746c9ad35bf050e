package jikan_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/media-tracker/internal/jikan"
	"github.com/handsomefox/media-tracker/internal/media"
)

const searchBody = `{
  "pagination": {"last_visible_page": 4, "has_next_page": true, "current_page": 2,
                 "items": {"count": 2, "total": 52, "per_page": 15}},
  "data": [
    {"mal_id": 5114, "title": "Hagane no Renkinjutsushi: Fullmetal Alchemist",
     "title_english": "Fullmetal Alchemist: Brotherhood",
     "images": {"jpg": {"image_url": "https://cdn.myanimelist.net/images/anime/1208/94745.jpg"}},
     "type": "TV", "episodes": 64, "score": 9.1, "airing": false,
     "aired": {"from": "2009-04-05T00:00:00+00:00", "to": "2010-07-04T00:00:00+00:00"},
     "genres": [{"mal_id": 1, "name": "Action"}, {"mal_id": 2, "name": ""}],
     "studios": [{"mal_id": 4, "name": "Bones"}]},
    {"mal_id": 121, "title": "Fullmetal Alchemist", "episodes": null, "score": null}
  ]
}`

func newServer(t *testing.T, handler http.HandlerFunc) *jikan.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return jikan.New(jikan.Options{BaseURL: srv.URL, RequestsPerSecond: 1000, Burst: 100})
}

func TestSearchParsesTypedPayload(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime", r.URL.Path)
		assert.Equal(t, "fullmetal", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "15", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	})

	page, err := client.Search(context.Background(), "fullmetal", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 52, page.Total)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Results, 2)

	fma := page.Results[0]
	assert.Equal(t, int64(5114), fma.MalID)
	assert.Equal(t, "Fullmetal Alchemist: Brotherhood", fma.DisplayTitle())
	require.NotNil(t, fma.Episodes)
	assert.Equal(t, 64, *fma.Episodes)
	assert.Equal(t, []string{"Action"}, jikan.Names(fma.Genres))

	old := page.Results[1]
	assert.Equal(t, "Fullmetal Alchemist", old.DisplayTitle())
	assert.Nil(t, old.Episodes)
	assert.Nil(t, old.Score)
}

func TestNon2xxIsUpstreamUnavailable(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Search(context.Background(), "naruto", 1)
	require.ErrorIs(t, err, media.ErrUpstreamUnavailable)

	var upErr *media.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "jikan", upErr.Provider)
	assert.Equal(t, "search", upErr.Op)
}

func TestMalformedBodyIsUpstreamUnavailable(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	})

	_, err := client.Top(context.Background(), 10)
	assert.ErrorIs(t, err, media.ErrUpstreamUnavailable)
}

func TestTransportFailureIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := jikan.New(jikan.Options{BaseURL: srv.URL})

	_, err := client.Upcoming(context.Background())
	assert.ErrorIs(t, err, media.ErrUpstreamUnavailable)
}

func TestAnimeDetailsNotFound(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime/999999", r.URL.Path)
		http.NotFound(w, r)
	})

	_, err := client.Anime(context.Background(), 999999)
	assert.ErrorIs(t, err, media.ErrNotFound)
	assert.NotErrorIs(t, err, media.ErrUpstreamUnavailable)
}

func TestRecommendationsAndTop(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/recommendations/anime":
			_, _ = w.Write([]byte(`{"data": [{"mal_id": "1-5", "content": "similar vibes",
				"entry": [{"mal_id": 1, "title": "Cowboy Bebop", "images": {"jpg": {"image_url": "bebop.jpg"}}}],
				"user": {"username": "spike"}}]}`))
		case "/top/anime":
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"data": [{"mal_id": 52991, "title": "Sousou no Frieren", "rank": 1}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	recs, err := client.Recommendations(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "spike", recs[0].User.Username)
	assert.Equal(t, int64(1), recs[0].Entry[0].MalID)

	top, err := client.Top(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1, *top[0].Rank)
}
