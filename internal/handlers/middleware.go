package handlers

import (
	"log/slog"
	"net/http"

	"github.com/handsomefox/media-tracker/internal/auth"
)

func (h *Handler) MiddlewareRequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, &errorResponse{Error: "unauthorized"})
			return
		}
		claims, err := h.tokens.Parse(token)
		if err != nil {
			h.log.DebugContext(r.Context(), "Rejected token", slog.Any("err", err))
			writeJSON(w, http.StatusUnauthorized, &errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), claims.UserID)))
	})
}

// MiddlewareOptionalAuth attaches the user when a valid token is present and
// lets anonymous requests through otherwise.
func (h *Handler) MiddlewareOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := tokenFromRequest(r); token != "" {
			if claims, err := h.tokens.Parse(token); err == nil {
				r = r.WithContext(auth.WithUserID(r.Context(), claims.UserID))
			}
		}
		next.ServeHTTP(w, r)
	})
}
