package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/media-tracker/internal/media"
	"github.com/handsomefox/media-tracker/internal/store"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func intPtr(v int) *int { return &v }

func newItem(id, user string, kind media.Kind, ext int64, title string, at time.Time) *media.Item {
	return &media.Item{
		ID:         id,
		UserID:     user,
		ExternalID: ext,
		Kind:       kind,
		Title:      title,
		Status:     media.StatusPlanning,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func TestAddAndGetRoundTrip(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	it := newItem("a1", "u1", media.KindAnime, 5114, "Fullmetal Alchemist: Brotherhood", t0)
	it.ImagePath = "https://cdn.example/fma.jpg"
	it.Progress.TotalEpisodes = intPtr(64)
	require.NoError(t, st.Add(ctx, it))

	got, err := st.Get(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Fullmetal Alchemist: Brotherhood", got.Title)
	assert.Equal(t, media.StatusPlanning, got.Status)
	require.NotNil(t, got.Progress.TotalEpisodes)
	assert.Equal(t, 64, *got.Progress.TotalEpisodes)
	assert.Nil(t, got.Rating)
	assert.Nil(t, got.Notes)
	assert.True(t, got.CreatedAt.Equal(t0))

	_, err = st.Get(ctx, "someone-else", "a1")
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestAddDuplicateIsConflict(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, st.Add(ctx, newItem("a1", "u1", media.KindAnime, 5114, "FMA", t0)))
	err := st.Add(ctx, newItem("a2", "u1", media.KindAnime, 5114, "FMA", t0))
	require.ErrorIs(t, err, media.ErrConflict)

	// Same external id under another kind or another user is a different entry.
	require.NoError(t, st.Add(ctx, newItem("a3", "u1", media.KindTV, 5114, "Other", t0)))
	require.NoError(t, st.Add(ctx, newItem("a4", "u2", media.KindAnime, 5114, "FMA", t0)))

	found, ok, err := st.FindByExternal(ctx, "u1", media.KindAnime, 5114)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a1", found.ID)

	_, ok, err = st.FindByExternal(ctx, "u1", media.KindMovie, 5114)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindManyFiltersAndPages(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	for i, title := range []string{"Naruto", "Bleach", "One Piece", "Monster", "Mushishi"} {
		it := newItem(string(rune('a'+i)), "u1", media.KindAnime, int64(100+i), title, t0.Add(time.Duration(i)*time.Hour))
		if i%2 == 0 {
			it.Status = media.StatusWatching
		}
		it.Rating = intPtr(5 + i)
		require.NoError(t, st.Add(ctx, it))
	}

	page, err := st.FindMany(ctx, "u1", store.ListQuery{Status: media.StatusWatching})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Mushishi", page.Items[0].Title, "default order is updatedAt desc")

	page, err = st.FindMany(ctx, "u1", store.ListQuery{Page: 2, PageSize: 2, Sort: "title", Order: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Mushishi", page.Items[0].Title)
	assert.Equal(t, "Naruto", page.Items[1].Title)

	page, err = st.FindMany(ctx, "u1", store.ListQuery{Search: "MUS"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Mushishi", page.Items[0].Title)

	page, err = st.FindMany(ctx, "u1", store.ListQuery{MinRating: intPtr(8)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	from := t0.Add(90 * time.Minute)
	to := t0.Add(3 * time.Hour)
	page, err = st.FindMany(ctx, "u1", store.ListQuery{UpdatedFrom: &from, UpdatedTo: &to})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = st.FindMany(ctx, "u1", store.ListQuery{Kinds: []media.Kind{media.KindMovie, media.KindTV}})
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Total)
	assert.NotNil(t, page.Items)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, st.Add(ctx, newItem("a", "u1", media.KindMovie, 1, "100% Wolf", t0)))
	require.NoError(t, st.Add(ctx, newItem("b", "u1", media.KindMovie, 2, "1000 Wolves", t0)))

	page, err := st.FindMany(ctx, "u1", store.ListQuery{Search: "100%"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "100% Wolf", page.Items[0].Title)
}

func TestUpdateWritesMutableFields(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	it := newItem("a1", "u1", media.KindTV, 1396, "Breaking Bad", t0)
	require.NoError(t, st.Add(ctx, it))

	notes := "rewatch s5"
	it.Status = media.StatusWatching
	it.Progress = media.Progress{CurrentEpisode: 10, TotalEpisodes: intPtr(62)}
	it.Rating = intPtr(10)
	it.Notes = &notes
	it.UpdatedAt = t0.Add(time.Hour)
	require.NoError(t, st.Update(ctx, "u1", "a1", it))

	got, err := st.Get(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, media.StatusWatching, got.Status)
	assert.Equal(t, 10, got.Progress.CurrentEpisode)
	assert.Equal(t, 62, *got.Progress.TotalEpisodes)
	assert.Equal(t, 10, *got.Rating)
	assert.Equal(t, "rewatch s5", *got.Notes)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Hour)))

	it.Rating = nil
	it.Notes = nil
	require.NoError(t, st.Update(ctx, "u1", "a1", it))
	got, err = st.Get(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Nil(t, got.Rating)
	assert.Nil(t, got.Notes)

	assert.ErrorIs(t, st.Update(ctx, "u2", "a1", it), media.ErrNotFound)
}

func TestBulkUpdateSkipsUnknownIDs(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, st.Add(ctx, newItem("a", "u1", media.KindAnime, 1, "A", t0)))
	require.NoError(t, st.Add(ctx, newItem("b", "u1", media.KindAnime, 2, "B", t0)))
	require.NoError(t, st.Add(ctx, newItem("c", "u2", media.KindAnime, 3, "C", t0)))

	n, err := st.BulkUpdateStatus(ctx, "u1", []media.Kind{media.KindAnime}, []string{"a", "b", "missing", "c"}, media.StatusCompleted, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := st.Get(ctx, "u2", "c")
	require.NoError(t, err)
	assert.Equal(t, media.StatusPlanning, got.Status)
}

func TestDeleteByIDAndDeleteAll(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	require.NoError(t, st.Add(ctx, newItem("a", "u1", media.KindAnime, 1, "A", t0)))
	require.NoError(t, st.Add(ctx, newItem("m", "u1", media.KindMovie, 2, "M", t0)))
	require.NoError(t, st.Add(ctx, newItem("t", "u1", media.KindTV, 3, "T", t0)))

	require.NoError(t, st.DeleteByID(ctx, "u1", "a"))
	assert.ErrorIs(t, st.DeleteByID(ctx, "u1", "a"), media.ErrNotFound)

	n, err := st.DeleteAll(ctx, "u1", []media.Kind{media.KindMovie, media.KindTV})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = st.DeleteAll(ctx, "u1", []media.Kind{media.KindAnime})
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestStatsEmptyUser(t *testing.T) {
	st := openStore(t)

	stats, err := st.Stats(context.Background(), "nobody", []media.Kind{media.KindAnime})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalItems)
	assert.Zero(t, stats.AvgRating)
	assert.Zero(t, stats.CompletedCount)
	assert.Zero(t, stats.TotalEpisodes)
	assert.NotNil(t, stats.ByStatus)
	assert.NotNil(t, stats.ByKind)
	assert.Empty(t, stats.ByStatus)
}

func TestStatsAggregates(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	a := newItem("a", "u1", media.KindAnime, 1, "A", t0)
	a.Status = media.StatusCompleted
	a.Progress = media.Progress{CurrentEpisode: 12, TotalEpisodes: intPtr(12)}
	a.Rating = intPtr(9)
	b := newItem("b", "u1", media.KindAnime, 2, "B", t0)
	b.Status = media.StatusWatching
	b.Progress.CurrentEpisode = 3
	b.Rating = intPtr(6)
	c := newItem("c", "u1", media.KindAnime, 3, "C", t0)
	m := newItem("m", "u1", media.KindMovie, 4, "M", t0)
	m.Rating = intPtr(1)
	for _, it := range []*media.Item{a, b, c, m} {
		require.NoError(t, st.Add(ctx, it))
	}

	stats, err := st.Stats(ctx, "u1", []media.Kind{media.KindAnime})
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalItems)
	assert.InDelta(t, 7.5, stats.AvgRating, 0.001)
	assert.EqualValues(t, 1, stats.CompletedCount)
	assert.EqualValues(t, 15, stats.TotalEpisodes)
	assert.EqualValues(t, 1, stats.ByStatus[media.StatusCompleted])
	assert.EqualValues(t, 1, stats.ByStatus[media.StatusPlanning])
	assert.EqualValues(t, 3, stats.ByKind[media.KindAnime])
	assert.Zero(t, stats.ByKind[media.KindMovie])
}

func TestMembershipBatchLookup(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()

	w := newItem("a", "u1", media.KindAnime, 5114, "FMA", t0)
	w.Status = media.StatusWatching
	require.NoError(t, st.Add(ctx, w))
	require.NoError(t, st.Add(ctx, newItem("b", "u1", media.KindMovie, 603, "Matrix", t0)))
	require.NoError(t, st.Add(ctx, newItem("c", "u2", media.KindAnime, 1, "Bebop", t0)))

	refs := []media.Ref{
		{Kind: media.KindAnime, ExternalID: 5114},
		{Kind: media.KindAnime, ExternalID: 5114},
		{Kind: media.KindAnime, ExternalID: 1},
		{Kind: media.KindTV, ExternalID: 603},
		{Kind: media.KindMovie, ExternalID: 603},
	}
	got, err := st.Membership(ctx, "u1", refs)
	require.NoError(t, err)
	assert.Equal(t, map[media.Ref]media.Status{
		{Kind: media.KindAnime, ExternalID: 5114}: media.StatusWatching,
		{Kind: media.KindMovie, ExternalID: 603}:  media.StatusPlanning,
	}, got)

	anon, err := st.Membership(ctx, "", refs)
	require.NoError(t, err)
	assert.Empty(t, anon)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := store.Open("")
	assert.Error(t, err)
}
