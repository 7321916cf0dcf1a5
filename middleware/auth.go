package middleware

import (
	"net/http"
	"strings"

	"matchmaking_server/auth"
	"matchmaking_server/helpers"
)

// RequireManager turns the gateway's X-Manager-Id header into an
// auth.Principal on the request context. Requests without it are refused.
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(auth.HeaderManagerID))
		if id == "" {
			helpers.WriteJSONMessage(w, http.StatusUnauthorized, nil, "missing manager identity")
			return
		}
		ctx := auth.WithPrincipal(r.Context(), auth.Principal{ManagerID: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
