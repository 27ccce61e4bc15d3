package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	// ctxKeyCaller holds a *string the request logger reads after the
	// handler returns.
	ctxKeyCaller
)

type authenticator interface {
	Authenticate(accessToken string) (string, error)
}

// authMiddleware requires a valid access token in the Authorization header.
func authMiddleware(auth authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			userID, err := auth.Authenticate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid access token")
				return
			}
			if caller, ok := r.Context().Value(ctxKeyCaller).(*string); ok {
				*caller = userID
			}
			ctx := context.WithValue(r.Context(), ctxKeyUser, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// selfOnly rejects requests whose {userId} is not the caller.
func selfOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "userId") != userFrom(r) {
			writeError(w, http.StatusForbidden, "you can only act on your own account")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFrom(r *http.Request) string {
	return r.Context().Value(ctxKeyUser).(string)
}
