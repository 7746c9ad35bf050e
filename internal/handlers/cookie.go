package handlers

import (
	"net/http"
	"strings"
)

const authCookieName = "auth"

// tokenFromRequest reads the bearer token from the Authorization header,
// falling back to the auth cookie set by the web client.
func tokenFromRequest(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	c, err := r.Cookie(authCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
