package media_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handsomefox/media-tracker/internal/media"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	base := errors.New("boom")
	err := media.Wrap(media.ErrNotFound, "entry abc", base)

	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrNotFound)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "entry abc")
}

func TestWrapWithoutCauseOrMessage(t *testing.T) {
	assert.Same(t, media.ErrConflict, media.Wrap(media.ErrConflict, "", nil))
	assert.ErrorIs(t, media.Wrap(media.ErrValidation, "query required", nil), media.ErrValidation)
}

func TestUpstreamErrorMatchesMarker(t *testing.T) {
	cause := errors.New("503 Service Unavailable")
	err := media.Upstream("jikan", "search", cause)

	assert.ErrorIs(t, err, media.ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, media.ErrNotFound)

	var upErr *media.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "jikan", upErr.Provider)
	assert.Equal(t, "jikan search failed: 503 Service Unavailable", err.Error())
}

func TestParseStatusAliases(t *testing.T) {
	cases := map[string]media.Status{
		"planning":    media.StatusPlanning,
		"planing":     media.StatusPlanning,
		" Planned ":   media.StatusPlanning,
		"in_progress": media.StatusWatching,
		"watching":    media.StatusWatching,
		"COMPLETED":   media.StatusCompleted,
		"on_hold":     media.StatusOnHold,
		"dropped":     media.StatusDropped,
	}
	for raw, want := range cases {
		got, err := media.ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := media.ParseStatus("paused")
	assert.ErrorIs(t, err, media.ErrValidation)
}

func TestParseKind(t *testing.T) {
	k, err := media.ParseKind("TV")
	require.NoError(t, err)
	assert.Equal(t, media.KindTV, k)

	_, err = media.ParseKind("manga")
	assert.ErrorIs(t, err, media.ErrValidation)
}
