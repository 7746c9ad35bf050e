package tracker

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/handsomefox/media-tracker/internal/media"
	"github.com/handsomefox/media-tracker/internal/reconcile"
	"github.com/handsomefox/media-tracker/internal/store"
)

type AddRequest struct {
	ExternalID int64
	Kind       media.Kind
	Status     media.Status
}

type ListResponse struct {
	Items      []media.Item `json:"items"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
	HasMore    bool         `json:"hasMore"`
}

// AddToList creates a planning (or req.Status) entry for an upstream title,
// copying its display metadata and episode count from the provider.
func (s *Service) AddToList(ctx context.Context, userID string, req AddRequest) (media.Item, error) {
	if err := requireUser(userID); err != nil {
		return media.Item{}, err
	}
	if req.ExternalID <= 0 {
		return media.Item{}, media.Wrap(media.ErrValidation, "external id must be positive", nil)
	}
	if !req.Kind.Valid() {
		return media.Item{}, media.Wrap(media.ErrValidation, "invalid media type", nil)
	}
	status := req.Status
	if status == "" {
		status = media.StatusPlanning
	}
	if !status.Valid() {
		return media.Item{}, media.Wrap(media.ErrValidation, "invalid status "+string(status), nil)
	}

	// Checked before the upstream call so a duplicate never costs a request.
	if _, exists, err := s.store.FindByExternal(ctx, userID, req.Kind, req.ExternalID); err != nil {
		return media.Item{}, err
	} else if exists {
		return media.Item{}, media.Wrap(media.ErrConflict, "item already in list", nil)
	}

	d, err := s.fetchDetail(ctx, req.Kind, req.ExternalID)
	if err != nil {
		return media.Item{}, err
	}

	now := s.now()
	item := media.Item{
		ID:         s.newID(),
		UserID:     userID,
		ExternalID: req.ExternalID,
		Kind:       req.Kind,
		Title:      d.Title,
		ImagePath:  d.Image,
		Status:     status,
		Progress:   media.Progress{TotalEpisodes: d.TotalEpisodes},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Add(ctx, &item); err != nil {
		if errors.Is(err, media.ErrConflict) {
			s.warn(ctx, "Concurrent add lost the race", err, "kind", req.Kind, "external_id", req.ExternalID)
		}
		return media.Item{}, err
	}
	return item, nil
}

// owned loads an entry and hides entries outside scope as not found.
func (s *Service) owned(ctx context.Context, scope Scope, userID, id string) (media.Item, error) {
	if err := requireUser(userID); err != nil {
		return media.Item{}, err
	}
	if strings.TrimSpace(id) == "" {
		return media.Item{}, media.Wrap(media.ErrValidation, "item id is required", nil)
	}
	item, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return media.Item{}, err
	}
	if !scope.Allows(item.Kind) {
		return media.Item{}, media.Wrap(media.ErrNotFound, "list item not found", nil)
	}
	return item, nil
}

func (s *Service) save(ctx context.Context, userID string, item *media.Item) (media.Item, error) {
	if err := s.store.Update(ctx, userID, item.ID, item); err != nil {
		return media.Item{}, err
	}
	return *item, nil
}

// UpdateEntry applies a partial update. Nothing is written unless every
// field of patch is valid.
func (s *Service) UpdateEntry(ctx context.Context, scope Scope, userID, id string, patch reconcile.Patch) (media.Item, error) {
	item, err := s.owned(ctx, scope, userID, id)
	if err != nil {
		return media.Item{}, err
	}
	next, err := reconcile.ApplyPatch(item, patch, s.now())
	if err != nil {
		return media.Item{}, err
	}
	return s.save(ctx, userID, &next)
}

func (s *Service) UpdateProgress(ctx context.Context, scope Scope, userID, id string, update reconcile.ProgressUpdate) (media.Item, error) {
	item, err := s.owned(ctx, scope, userID, id)
	if err != nil {
		return media.Item{}, err
	}
	next, err := reconcile.ApplyProgress(item, update, s.now())
	if err != nil {
		return media.Item{}, err
	}
	return s.save(ctx, userID, &next)
}

// StepProgress moves the current episode by delta (usually +1 or -1).
func (s *Service) StepProgress(ctx context.Context, scope Scope, userID, id string, delta int) (media.Item, error) {
	if delta == 0 {
		return media.Item{}, media.Wrap(media.ErrValidation, "delta must not be zero", nil)
	}
	item, err := s.owned(ctx, scope, userID, id)
	if err != nil {
		return media.Item{}, err
	}
	next, err := reconcile.Step(item, delta, s.now())
	if err != nil {
		return media.Item{}, err
	}
	return s.save(ctx, userID, &next)
}

// ListEntries pages through the user's entries in scope. query.Kinds may
// narrow the scope but never widen it.
func (s *Service) ListEntries(ctx context.Context, scope Scope, userID string, query store.ListQuery) (ListResponse, error) {
	if err := requireUser(userID); err != nil {
		return ListResponse{}, err
	}
	if query.Status != "" && !query.Status.Valid() {
		return ListResponse{}, media.Wrap(media.ErrValidation, "invalid status "+string(query.Status), nil)
	}
	if query.MinRating != nil {
		if err := reconcile.ValidateRating(query.MinRating); err != nil {
			return ListResponse{}, err
		}
	}
	if len(query.Kinds) == 0 {
		query.Kinds = scope.Kinds()
	}
	for _, k := range query.Kinds {
		if !scope.Allows(k) {
			return ListResponse{}, media.Wrap(media.ErrValidation, "media type "+string(k)+" is not part of this list", nil)
		}
	}
	query = query.Normalize()

	page, err := s.store.FindMany(ctx, userID, query)
	if err != nil {
		return ListResponse{}, err
	}

	totalPages := int((page.Total + int64(query.PageSize) - 1) / int64(query.PageSize))
	skip := int64((query.Page - 1) * query.PageSize)
	return ListResponse{
		Items:      page.Items,
		Total:      page.Total,
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalPages: totalPages,
		HasMore:    skip+int64(len(page.Items)) < page.Total,
	}, nil
}

func (s *Service) Stats(ctx context.Context, scope Scope, userID string) (media.Stats, error) {
	if err := requireUser(userID); err != nil {
		return media.Stats{}, err
	}
	return s.store.Stats(ctx, userID, scope.Kinds())
}

// DeleteEntry removes one entry and returns it as it was.
func (s *Service) DeleteEntry(ctx context.Context, scope Scope, userID, id string) (media.Item, error) {
	item, err := s.owned(ctx, scope, userID, id)
	if err != nil {
		return media.Item{}, err
	}
	if err := s.store.DeleteByID(ctx, userID, id); err != nil {
		return media.Item{}, err
	}
	return item, nil
}

// DeleteAll clears the user's list for the scope.
func (s *Service) DeleteAll(ctx context.Context, scope Scope, userID string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	return s.store.DeleteAll(ctx, userID, scope.Kinds())
}

// BulkUpdateStatus writes status verbatim to every listed entry the user
// owns in scope. Unknown ids are skipped; the count of changed entries is
// returned.
func (s *Service) BulkUpdateStatus(ctx context.Context, scope Scope, userID string, ids []string, status media.Status) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	if !status.Valid() {
		return 0, media.Wrap(media.ErrValidation, "invalid status "+string(status), nil)
	}
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(clean, id) {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return 0, media.Wrap(media.ErrValidation, "at least one item id is required", nil)
	}
	return s.store.BulkUpdateStatus(ctx, userID, scope.Kinds(), clean, status, s.now())
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return media.Wrap(media.ErrValidation, "user id is required", nil)
	}
	return nil
}
