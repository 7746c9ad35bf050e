// Package reconcile owns the status/progress state machine for tracked items.
//
// Progress writes derive status automatically: reaching the known episode
// total completes the entry, and the first watched episode moves a planned
// entry to watching. Explicit status writes are taken verbatim and never
// re-derived, so a manual on_hold or dropped sticks until the next progress
// write.
//
// Every function here works on a copy and validates before changing anything,
// so a rejected update leaves the caller's item untouched.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/handsomefox/media-tracker/internal/media"
)

const (
	MinRating = 0
	MaxRating = 10
)

// ProgressUpdate is an absolute progress write. TotalEpisodes replaces the
// stored total only when it is positive; nil or 0 keeps the stored value.
type ProgressUpdate struct {
	CurrentEpisode int  `json:"currentEpisode"`
	TotalEpisodes  *int `json:"totalEpisodes,omitempty"`
}

// Patch is a partial update. Nil fields are left alone.
type Patch struct {
	Status   *media.Status
	Progress *ProgressUpdate
	Rating   *RatingUpdate
	Notes    *string
}

// RatingUpdate distinguishes "clear the rating" (Value nil) from "no change"
// (a nil *RatingUpdate on the Patch).
type RatingUpdate struct {
	Value *int
}

func (p Patch) Empty() bool {
	return p.Status == nil && p.Progress == nil && p.Rating == nil && p.Notes == nil
}

// ApplyProgress validates and writes new progress, then derives status.
func ApplyProgress(item media.Item, update ProgressUpdate, now time.Time) (media.Item, error) {
	if update.CurrentEpisode < 0 {
		return item, media.Wrap(media.ErrInvalidProgress, "episode counts cannot be negative", nil)
	}
	if update.TotalEpisodes != nil && *update.TotalEpisodes < 0 {
		return item, media.Wrap(media.ErrInvalidProgress, "episode counts cannot be negative", nil)
	}

	total := item.Progress.TotalEpisodes
	if update.TotalEpisodes != nil && *update.TotalEpisodes > 0 {
		v := *update.TotalEpisodes
		total = &v
	}
	if total != nil && update.CurrentEpisode > *total {
		return item, media.Wrap(media.ErrInvalidProgress,
			fmt.Sprintf("current episode %d exceeds total episodes %d", update.CurrentEpisode, *total), nil)
	}

	item.Progress = media.Progress{CurrentEpisode: update.CurrentEpisode, TotalEpisodes: total}
	item.Status = DeriveStatus(item.Status, item.Progress)
	item.UpdatedAt = now
	return item, nil
}

// Step moves progress by delta episodes (negative to go back).
func Step(item media.Item, delta int, now time.Time) (media.Item, error) {
	return ApplyProgress(item, ProgressUpdate{CurrentEpisode: item.Progress.CurrentEpisode + delta}, now)
}

// DeriveStatus is the single place where progress drives status. Completion
// wins over every prior status, including dropped and on_hold.
func DeriveStatus(current media.Status, p media.Progress) media.Status {
	if total, ok := p.Total(); ok && total > 0 && p.CurrentEpisode == total {
		return media.StatusCompleted
	}
	if p.CurrentEpisode > 0 && current == media.StatusPlanning {
		return media.StatusWatching
	}
	return current
}

// ApplyStatus writes status verbatim.
func ApplyStatus(item media.Item, status media.Status, now time.Time) (media.Item, error) {
	if !status.Valid() {
		return item, media.Wrap(media.ErrValidation, "invalid status \""+string(status)+"\"", nil)
	}
	item.Status = status
	item.UpdatedAt = now
	return item, nil
}

func ApplyRating(item media.Item, rating *int, now time.Time) (media.Item, error) {
	if err := ValidateRating(rating); err != nil {
		return item, err
	}
	if rating != nil {
		v := *rating
		rating = &v
	}
	item.Rating = rating
	item.UpdatedAt = now
	return item, nil
}

func ValidateRating(rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < MinRating || *rating > MaxRating {
		return media.Wrap(media.ErrValidation, fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating), nil)
	}
	return nil
}

// ApplyNotes stores trimmed notes; blank notes clear the field.
func ApplyNotes(item media.Item, notes string, now time.Time) media.Item {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		item.Notes = nil
	} else {
		item.Notes = &notes
	}
	item.UpdatedAt = now
	return item
}

// ApplyPatch applies progress first and explicit status second, so a status
// sent alongside progress always wins over the derived one.
func ApplyPatch(item media.Item, patch Patch, now time.Time) (media.Item, error) {
	if patch.Empty() {
		return item, media.Wrap(media.ErrValidation, "no fields provided", nil)
	}
	if patch.Rating != nil {
		if err := ValidateRating(patch.Rating.Value); err != nil {
			return item, err
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return item, media.Wrap(media.ErrValidation, "invalid status \""+string(*patch.Status)+"\"", nil)
	}

	next := item
	var err error
	if patch.Progress != nil {
		if next, err = ApplyProgress(next, *patch.Progress, now); err != nil {
			return item, err
		}
	}
	if patch.Status != nil {
		if next, err = ApplyStatus(next, *patch.Status, now); err != nil {
			return item, err
		}
	}
	if patch.Rating != nil {
		if next, err = ApplyRating(next, patch.Rating.Value, now); err != nil {
			return item, err
		}
	}
	if patch.Notes != nil {
		next = ApplyNotes(next, *patch.Notes, now)
	}
	next.UpdatedAt = now
	return next, nil
}
