// Package auth provides the bearer-token middleware guarding session-bound
// routes. Token validation and revocation checking are interface-driven so
// the middleware stays decoupled from the JWT and store implementations.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"facegate/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns its session claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// RevocationChecker reports whether a token id has been revoked (logout).
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SessionClaims are the claims the middleware expects from the validator.
type SessionClaims struct {
	UserID string
	Role   string
	JTI    string
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errCode + `","error_description":"` + errDesc + `"}`))
}

// RequireSession rejects requests without a valid, unrevoked bearer token
// and injects the session identity into the request context.
func RequireSession(validator TokenValidator, revocation RevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "session token required")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "rejected invalid session token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			if revocation != nil {
				revoked, err := revocation.IsRevoked(ctx, claims.JTI)
				if err != nil {
					// Revocation store outage fails closed: a token we cannot
					// vouch for does not open an exam session.
					logger.ErrorContext(ctx, "revocation check failed",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
					writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "session verification unavailable")
					return
				}
				if revoked {
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "session has been revoked")
					return
				}
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			ctx = requestcontext.WithRole(ctx, claims.Role)
			ctx = requestcontext.WithSessionJTI(ctx, claims.JTI)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
