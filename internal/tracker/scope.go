package tracker

import (
	"slices"

	"github.com/handsomefox/media-tracker/internal/media"
)

// Scope selects which list and which upstream catalog an operation works on.
type Scope string

const (
	ScopeAnime Scope = "anime"
	ScopeMedia Scope = "media"
)

func (s Scope) Valid() bool {
	return s == ScopeAnime || s == ScopeMedia
}

// Kinds lists the media kinds that belong to the scope's list.
func (s Scope) Kinds() []media.Kind {
	switch s {
	case ScopeAnime:
		return []media.Kind{media.KindAnime}
	case ScopeMedia:
		return []media.Kind{media.KindMovie, media.KindTV}
	}
	return nil
}

func (s Scope) Allows(k media.Kind) bool {
	return slices.Contains(s.Kinds(), k)
}

// ScopeOf reports which scope a kind is listed under.
func ScopeOf(k media.Kind) Scope {
	if k == media.KindAnime {
		return ScopeAnime
	}
	return ScopeMedia
}
