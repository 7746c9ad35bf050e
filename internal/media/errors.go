package media

import (
	"errors"
	"fmt"
	"strings"
)

// Markers for error classification. Wrapped errors keep them reachable
// through errors.Is so the HTTP boundary can pick a status code.
var (
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrInvalidProgress     = errors.New("invalid progress")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Wrap tags err with marker and a short message.
func Wrap(marker error, message string, err error) error {
	message = strings.TrimSpace(message)
	switch {
	case err != nil && message != "":
		return fmt.Errorf("%w: %s: %w", marker, message, err)
	case err != nil:
		return fmt.Errorf("%w: %w", marker, err)
	case message != "":
		return fmt.Errorf("%w: %s", marker, message)
	default:
		return marker
	}
}

// UpstreamError reports a failed call to a catalog provider.
type UpstreamError struct {
	Provider string
	Op       string
	Err      error
}

func (e *UpstreamError) Error() string {
	msg := e.Provider + " " + e.Op + " failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

func Upstream(provider, op string, err error) error {
	return &UpstreamError{Provider: provider, Op: op, Err: err}
}
