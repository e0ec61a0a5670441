package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"leaddesk/internal/authz"
	"leaddesk/internal/platform/metrics"
	"leaddesk/internal/transport/http/shared"
	"leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
)

// TokenRevocationChecker reports whether a token's JTI has been revoked
// (logout). Optional; a nil checker skips the lookup.
type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type contextKeyPrincipal struct{}

var principalKey = contextKeyPrincipal{}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(ctx context.Context) (authz.Principal, bool) {
	p, ok := ctx.Value(principalKey).(authz.Principal)
	return p, ok
}

// WithPrincipal stores a principal in the context the way RequireRole does.
// Handler tests use it to simulate an authenticated request.
func WithPrincipal(ctx context.Context, p authz.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// RequireRole runs the authorization gate for every request on the wrapped
// routes. A missing or invalid token is terminal 401, an insufficient role
// terminal 403; denied requests never reach the handler with partial
// capability.
func RequireRole(gate *authz.Gate, revocation TokenRevocationChecker, m *metrics.Metrics, logger *slog.Logger, required domain.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				m.RecordDenial("unauthenticated")
				shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid authorization header"))
				return
			}

			principal, err := gate.Authorize(token, required)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeForbidden) {
					logger.WarnContext(ctx, "forbidden access - insufficient role",
						"request_id", GetRequestID(ctx),
					)
					m.RecordDenial("forbidden")
					shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role for this operation"))
					return
				}
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				m.RecordDenial("unauthenticated")
				shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			if revocation != nil {
				revoked, err := revocation.IsRevoked(ctx, principal.TokenID)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"request_id", GetRequestID(ctx),
						"error", err,
					)
					shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to validate token"))
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"request_id", GetRequestID(ctx),
						"jti", principal.TokenID,
					)
					m.RecordDenial("unauthenticated")
					shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked"))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, principalKey, principal)))
		})
	}
}

