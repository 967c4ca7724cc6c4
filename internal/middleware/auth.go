package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/WebisityStudio/CircleEye-sub000/internal/auth"
)

// userIDHeader carries the identity resolved by the portal's auth
// gateway. Anonymous requests simply omit it; individual handlers
// decide whether that is acceptable.
const userIDHeader = "X-User-ID"

func ResolveUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(userIDHeader); raw != "" {
			if id, err := uuid.Parse(raw); err == nil && id != uuid.Nil {
				r = r.WithContext(auth.WithUserID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}
