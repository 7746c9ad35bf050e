// Package media holds the tracked-item model shared by the store, the
// reconciliation engine and the HTTP layer.
package media

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindAnime Kind = "anime"
	KindMovie Kind = "movie"
	KindTV    Kind = "tv"
)

func (k Kind) Valid() bool {
	switch k {
	case KindAnime, KindMovie, KindTV:
		return true
	}
	return false
}

func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if !k.Valid() {
		return "", Wrap(ErrValidation, "invalid media type "+quote(raw), nil)
	}
	return k, nil
}

type Status string

const (
	StatusPlanning  Status = "planning"
	StatusWatching  Status = "watching"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on_hold"
	StatusDropped   Status = "dropped"
)

var statusAliases = map[string]Status{
	"planning":    StatusPlanning,
	"planing":     StatusPlanning,
	"planned":     StatusPlanning,
	"watching":    StatusWatching,
	"in_progress": StatusWatching,
	"completed":   StatusCompleted,
	"on_hold":     StatusOnHold,
	"dropped":     StatusDropped,
}

// AllStatuses lists the canonical statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusPlanning, StatusWatching, StatusCompleted, StatusOnHold, StatusDropped}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusWatching, StatusCompleted, StatusOnHold, StatusDropped:
		return true
	}
	return false
}

// ParseStatus accepts the canonical names plus the legacy spellings used by
// older clients (in_progress, planing, planned).
func ParseStatus(raw string) (Status, error) {
	if s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s, nil
	}
	return "", Wrap(ErrValidation, "invalid status "+quote(raw), nil)
}

type Progress struct {
	CurrentEpisode int  `json:"currentEpisode"`
	TotalEpisodes  *int `json:"totalEpisodes"`
}

// Total returns the known episode count and whether it is known.
func (p Progress) Total() (int, bool) {
	if p.TotalEpisodes == nil {
		return 0, false
	}
	return *p.TotalEpisodes, true
}

type Item struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ExternalID int64     `json:"externalId"`
	Kind       Kind      `json:"mediaType"`
	Title      string    `json:"title"`
	ImagePath  string    `json:"image,omitempty"`
	Status     Status    `json:"status"`
	Progress   Progress  `json:"progress"`
	Rating     *int      `json:"rating"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (it *Item) Ref() Ref {
	return Ref{Kind: it.Kind, ExternalID: it.ExternalID}
}

// Ref identifies a catalog title independently of any user.
type Ref struct {
	Kind       Kind
	ExternalID int64
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ExternalID)
}

// Stats is the per-user aggregate over tracked items. Maps are never nil.
type Stats struct {
	TotalItems     int64            `json:"totalItems"`
	ByStatus       map[Status]int64 `json:"byStatus"`
	ByKind         map[Kind]int64   `json:"byMediaType"`
	AvgRating      float64          `json:"avgRating"`
	CompletedCount int64            `json:"completedCount"`
	TotalEpisodes  int64            `json:"totalEpisodes"`
}

func EmptyStats() Stats {
	return Stats{
		ByStatus: map[Status]int64{},
		ByKind:   map[Kind]int64{},
	}
}

func quote(s string) string {
	return "\"" + strings.TrimSpace(s) + "\""
}
