package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type ctxKey int

const ctxKeyEntry ctxKey = iota

// sessionMiddleware resolves the bearer token to a live session. Streaming
// endpoints cannot set headers from a browser, so a token query parameter
// is accepted as well.
func sessionMiddleware(tokens *Tokens, hub *Hub) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing session token")
				return
			}

			id, err := tokens.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			e, err := hub.Get(id)
			if errors.Is(err, ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyEntry, e)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

func entryFrom(r *http.Request) *Entry {
	return r.Context().Value(ctxKeyEntry).(*Entry)
}
