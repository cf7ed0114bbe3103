package httpapi

import (
	"context"
	"net/http"
	"strings"

	"habit-tracker/internal/model"
	"habit-tracker/internal/repository"
)

type contextKey string

const userContextKey contextKey = "user"

// requireAuth resolves the Bearer token to a user and stores it in the
// request context. Unknown or missing tokens get 401.
func requireAuth(users *repository.UserRepository, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		user, err := users.FindByAPIToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(r *http.Request) *model.User {
	user, _ := r.Context().Value(userContextKey).(*model.User)
	return user
}
