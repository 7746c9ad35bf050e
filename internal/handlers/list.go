package handlers

import (
	"net/http"
	"strings"

	"github.com/handsomefox/media-tracker/internal/auth"
	"github.com/handsomefox/media-tracker/internal/media"
	"github.com/handsomefox/media-tracker/internal/reconcile"
	"github.com/handsomefox/media-tracker/internal/store"
	"github.com/handsomefox/media-tracker/internal/tracker"
)

func requireUserID(r *http.Request) (string, error) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		return "", unauthorized("unauthorized")
	}
	return userID, nil
}

func (h *Handler) postList(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	userID, err := requireUserID(r)
	if err != nil {
		return err
	}

	var req addRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}

	kind := media.KindAnime
	if scope == tracker.ScopeMedia {
		if kind, err = media.ParseKind(req.MediaType); err != nil {
			return err
		}
		if !scope.Allows(kind) {
			return badRequest("mediaType must be movie or tv")
		}
	}

	var status media.Status
	if raw := strings.TrimSpace(valueOrDefault(req.Status)); raw != "" {
		if status, err = media.ParseStatus(raw); err != nil {
			return err
		}
	}

	item, err := h.svc.AddToList(r.Context(), userID, tracker.AddRequest{
		ExternalID: req.externalID(),
		Kind:       kind,
		Status:     status,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, &item)
	return nil
}

func (h *Handler) getList(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	userID, err := requireUserID(r)
	if err != nil {
		return err
	}
	query, err := parseListQuery(r)
	if err != nil {
		return err
	}
	resp, err := h.svc.ListEntries(r.Context(), scope, userID, query)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &resp)
	return nil
}

func parseListQuery(r *http.Request) (store.ListQuery, error) {
	q := r.URL.Query()
	query := store.ListQuery{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
	}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" && raw != "all" {
		status, err := media.ParseStatus(raw)
		if err != nil {
			return store.ListQuery{}, err
		}
		query.Status = status
	}
	if raw := strings.TrimSpace(q.Get("mediaType")); raw != "" && raw != "all" {
		kind, err := media.ParseKind(raw)
		if err != nil {
			return store.ListQuery{}, err
		}
		query.Kinds = []media.Kind{kind}
	}

	var err error
	if query.MinRating, err = queryInt(r, "rating"); err != nil {
		return store.ListQuery{}, err
	}
	if query.UpdatedFrom, err = queryTime(r, "dateFrom", false); err != nil {
		return store.ListQuery{}, err
	}
	if query.UpdatedTo, err = queryTime(r, "dateTo", true); err != nil {
		return store.ListQuery{}, err
	}
	page, err := queryInt(r, "page")
	if err != nil {
		return store.ListQuery{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return store.ListQuery{}, err
	}
	query.Page = valueOrDefault(page)
	query.PageSize = valueOrDefault(limit)
	return query, nil
}

func (h *Handler) putListItem(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	userID, err := requireUserID(r)
	if err != nil {
		return err
	}
	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}

	var patch reconcile.Patch
	if req.Status != nil {
		status, err := media.ParseStatus(*req.Status)
		if err != nil {
			return err
		}
		patch.Status = &status
	}
	if req.Progress != nil {
		if req.Progress.CurrentEpisode == nil {
			return badRequest("progress.currentEpisode is required")
		}
		patch.Progress = &reconcile.ProgressUpdate{
			CurrentEpisode: *req.Progress.CurrentEpisode,
			TotalEpisodes:  req.Progress.TotalEpisodes,
		}
	}
	if req.Rating.Set {
		patch.Rating = &reconcile.RatingUpdate{Value: req.Rating.Value}
	}
	patch.Notes = req.Notes

	item, err := h.svc.UpdateEntry(r.Context(), scope, userID, id, patch)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &item)
	return nil
}

func (h *Handler) putProgress(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	userID, err := requireUserID(r)
	if err != nil {
		return err
	}
	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	var req progressBody
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if req.CurrentEpisode == nil {
		return badRequest("currentEpisode is required")
	}

	item, err := h.svc.UpdateProgress(r.Context(), scope, userID, id, reconcile.ProgressUpdate{
		CurrentEpisode: *req.CurrentEpisode,
		TotalEpisodes:  req.TotalEpisodes,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &item)
	return nil
}

// postProgressStep advances by one episode unless the body carries a delta.
func (h *Handler) postProgressStep(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	userID, err := requireUserID(r)
	if err != nil {
		return err
	}
	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	var req stepRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	delta := 1
	if req.Delta != nil {
		delta = *req.Delta
	}

	item, err := h.svc.StepProgress(r.Context(), scope, userID, id, delta)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &item)
	return nil
}

func (h *Handler) deleteListItem(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	userID, err := requireUserID(r)
	if err != nil {
		return err
	}
	id, err := idParam(r, "id")
	if err != nil {
		return notFound("not found")
	}

	item, err := h.svc.DeleteEntry(r.Context(), scope, userID, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &deleteItemResponse{Message: "Item deleted successfully", DeletedItem: item})
	return nil
}

func (h *Handler) deleteList(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	userID, err := requireUserID(r)
	if err != nil {
		return err
	}
	n, err := h.svc.DeleteAll(r.Context(), scope, userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &deleteAllResponse{Message: "All items deleted successfully", DeletedCount: n})
	return nil
}

func (h *Handler) postBulkStatus(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	userID, err := requireUserID(r)
	if err != nil {
		return err
	}

	var req bulkStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	if len(req.IDs) == 0 {
		return badRequest("ids must be a non-empty array")
	}
	status, err := media.ParseStatus(req.Status)
	if err != nil {
		return err
	}

	n, err := h.svc.BulkUpdateStatus(r.Context(), scope, userID, req.IDs, status)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &bulkStatusResponse{Message: "Status updated successfully", ModifiedCount: n})
	return nil
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	userID, err := requireUserID(r)
	if err != nil {
		return err
	}
	stats, err := h.svc.Stats(r.Context(), scope, userID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &stats)
	return nil
}
