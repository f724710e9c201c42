package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// The identity collaborator authenticates upstream and forwards the resolved
// user on these headers. This service only checks presence.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderAdmin     = "X-Admin"
)

// User is the opaque current-user capability consumed by the core flows.
type User struct {
	ID    string
	Email string
	Admin bool
}

type ctxKey struct{}

// RequireUser rejects requests without an authenticated user with 401,
// signalling the caller to redirect to sign-in.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}

		user := User{
			ID:    id,
			Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
			Admin: r.Header.Get(HeaderAdmin) == "true",
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin guards the admin read surfaces. It implies RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFrom(r.Context())
		if !user.Admin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func UserFrom(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(ctxKey{}).(User)
	return user, ok
}
