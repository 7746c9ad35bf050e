package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/handsomefox/media-tracker/internal/media"
)

type HandlerWithErr func(w http.ResponseWriter, r *http.Request) error

type Error struct {
	Status  int
	Message string
}

func (e Error) Error() string {
	return e.Message + " code=" + strconv.FormatInt(int64(e.Status), 10)
}

// Adapt turns a HandlerWithErr into an http.Handler. Boundary errors keep
// their status, domain errors are classified by statusFor, and anything
// unclassified becomes a logged 500 without leaking its text.
func Adapt(h HandlerWithErr) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var statusErr *Error
		if errors.As(err, &statusErr) {
			writeJSON(w, statusErr.Status, &errorResponse{Error: statusErr.Message})
			return
		}

		status := statusFor(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Request failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("err", err))
			writeJSON(w, status, &errorResponse{Error: "internal server error"})
			return
		}
		if status == http.StatusBadGateway {
			slog.WarnContext(r.Context(), "Upstream request failed", slog.Any("err", err))
		}
		writeJSON(w, status, &errorResponse{Error: err.Error()})
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, media.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, media.ErrInvalidProgress):
		return http.StatusUnprocessableEntity
	case errors.Is(err, media.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
