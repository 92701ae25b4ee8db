// Package admin provides the role gate for admin-only routes. It runs after
// the session middleware, which put the caller's role in the context.
package admin

import (
	"log/slog"
	"net/http"

	"facegate/pkg/requestcontext"
)

// RoleAdmin is the role string granted to administrators.
const RoleAdmin = "admin"

// RequireAdmin rejects authenticated callers whose session role is not
// admin. The request terminates before any state mutation.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != RoleAdmin {
				logger.WarnContext(ctx, "non-admin caller on admin route",
					"user_id", requestcontext.UserID(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
