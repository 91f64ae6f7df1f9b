package http

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const emailKey contextKey = "email"

// authenticate verifies the bearer token and stashes the caller's email in
// the request context. When no auth service is wired (tests, demo mode) the
// request passes through anonymously.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		_, email, err := h.auth.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), emailKey, email)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// callerEmail returns the authenticated email, or "" for anonymous requests.
func callerEmail(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}
