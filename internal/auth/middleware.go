package auth

import (
	"context"
	"net/http"
	"strings"
)

type userIDKeyType struct{}

var userIDKey = userIDKeyType{}

// WithAuth resolves the session token from the Authorization header (or the
// "token" query parameter, which the websocket endpoint relies on) and puts
// the user id into the request context.
func WithAuth(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ""

			if h := r.Header.Get("Authorization"); h != "" {
				parts := strings.SplitN(h, " ", 2)
				if len(parts) != 2 || parts[0] != "Bearer" {
					http.Error(w, "invalid authorization header", http.StatusUnauthorized)
					return
				}
				raw = parts[1]
			} else {
				raw = r.URL.Query().Get("token")
			}

			if raw == "" {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}

			uid, err := ParseToken(secret, raw)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user id placed by WithAuth, or "".
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
