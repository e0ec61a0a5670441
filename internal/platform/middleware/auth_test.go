package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaddesk/internal/authz"
	"leaddesk/internal/jwttoken"
	"leaddesk/internal/platform/metrics"
	"leaddesk/internal/platform/middleware"
	"leaddesk/pkg/domain"
)

const signingKey = "test-signing-key"

type staticRevocation struct {
	revoked map[string]bool
}

func (s staticRevocation) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], nil
}

func protected(t *testing.T, required domain.RoleSet, revocation middleware.TokenRevocationChecker) http.Handler {
	t.Helper()
	gate := authz.NewGate(jwttoken.New(signingKey, "leaddesk-test"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := middleware.GetPrincipal(r.Context())
		require.True(t, ok, "principal must be in context past the middleware")
		w.Header().Set("X-Identity", p.Role.String())
		w.WriteHeader(http.StatusOK)
	})
	return middleware.RequireRole(gate, revocation, m, logger, required)(handler)
}

func mintToken(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, err := jwttoken.New(signingKey, "leaddesk-test").GenerateAccessToken(userID, role, time.Hour)
	require.NoError(t, err)
	return token
}

func doAuthed(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	h := protected(t, domain.AnyStaff, staticRevocation{})

	rr := doAuthed(h, mintToken(t, 7, "sales"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "sales", rr.Header().Get("X-Identity"))
}

func TestRequireRoleMissingTokenUnauthorized(t *testing.T) {
	h := protected(t, domain.AnyStaff, staticRevocation{})

	rr := doAuthed(h, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRoleGarbageTokenUnauthorized(t *testing.T) {
	h := protected(t, domain.AnyStaff, staticRevocation{})

	rr := doAuthed(h, "not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRoleExpiredTokenUnauthorized(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuer := jwttoken.New(signingKey, "leaddesk-test", jwttoken.WithClock(func() time.Time { return past }))
	token, err := issuer.GenerateAccessToken(7, "sales", time.Hour)
	require.NoError(t, err)

	h := protected(t, domain.AnyStaff, staticRevocation{})
	rr := doAuthed(h, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRoleInsufficientRoleForbidden(t *testing.T) {
	h := protected(t, domain.AdminOnly, staticRevocation{})

	for _, role := range []string{"sales", "management"} {
		t.Run(role, func(t *testing.T) {
			rr := doAuthed(h, mintToken(t, 7, role))
			assert.Equal(t, http.StatusForbidden, rr.Code)
		})
	}
}

func TestRequireRoleAdminPassesAdminOnly(t *testing.T) {
	h := protected(t, domain.AdminOnly, staticRevocation{})

	rr := doAuthed(h, mintToken(t, 1, "admin"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequireRoleRevokedTokenUnauthorized(t *testing.T) {
	token := mintToken(t, 7, "sales")

	claims, err := jwttoken.New(signingKey, "leaddesk-test").ValidateToken(token)
	require.NoError(t, err)

	h := protected(t, domain.AnyStaff, staticRevocation{revoked: map[string]bool{claims.ID: true}})
	rr := doAuthed(h, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
