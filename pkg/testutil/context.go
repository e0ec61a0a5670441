package testutil

import (
	"context"
	"net/http"

	"leaddesk/internal/authz"
	"leaddesk/internal/platform/middleware"
	"leaddesk/pkg/domain"
)

// WithPrincipal attaches an authenticated principal to the request context.
// This simulates what the RequireRole middleware does for valid tokens.
func WithPrincipal(req *http.Request, p authz.Principal) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), p))
}

// WithActor attaches a minimal principal with the given id and role.
func WithActor(req *http.Request, id int64, role domain.Role) *http.Request {
	return WithPrincipal(req, authz.Principal{IdentityID: id, Role: role, TokenID: "test-jti"})
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
