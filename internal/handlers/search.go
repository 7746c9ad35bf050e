package handlers

import (
	"net/http"

	"github.com/handsomefox/media-tracker/internal/auth"
	"github.com/handsomefox/media-tracker/internal/tracker"
)

// getSearch works for anonymous callers too; membership flags are only set
// for an authenticated user.
func (h *Handler) getSearch(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	page, err := queryInt(r, "page")
	if err != nil {
		return err
	}
	resp, err := h.svc.Search(r.Context(), scope, auth.UserID(r.Context()), r.URL.Query().Get("query"), valueOrDefault(page))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &resp)
	return nil
}

func (h *Handler) getSuggestions(w http.ResponseWriter, r *http.Request, scope tracker.Scope) error {
	resp, err := h.svc.Suggest(r.Context(), scope, r.URL.Query().Get("query"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &resp)
	return nil
}

func (h *Handler) getRecommendations(w http.ResponseWriter, r *http.Request) error {
	recs, err := h.svc.Recommendations(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &recommendationsResponse{Results: recs, Success: true})
	return nil
}

func (h *Handler) getUpcoming(w http.ResponseWriter, r *http.Request) error {
	items, err := h.svc.Upcoming(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &animeFeedResponse{Results: items, Success: true})
	return nil
}

func (h *Handler) getTop(w http.ResponseWriter, r *http.Request) error {
	items, err := h.svc.Top(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &animeFeedResponse{Results: items, Success: true})
	return nil
}
