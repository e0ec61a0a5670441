package httptransport_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"leaddesk/internal/audit"
	auditHandler "leaddesk/internal/audit/handler"
	auditMemory "leaddesk/internal/audit/store/memory"
	"leaddesk/internal/auth"
	authHandler "leaddesk/internal/auth/handler"
	"leaddesk/internal/auth/revocation"
	"leaddesk/internal/authz"
	"leaddesk/internal/client"
	clientHandler "leaddesk/internal/client/handler"
	clientMemory "leaddesk/internal/client/store/memory"
	"leaddesk/internal/identity"
	identityHandler "leaddesk/internal/identity/handler"
	identityMemory "leaddesk/internal/identity/store/memory"
	"leaddesk/internal/jwttoken"
	"leaddesk/internal/lead"
	leadHandler "leaddesk/internal/lead/handler"
	leadMemory "leaddesk/internal/lead/store/memory"
	"leaddesk/internal/platform/metrics"
	"leaddesk/internal/storage"
	httptransport "leaddesk/internal/transport/http"
	"leaddesk/pkg/testutil"
)

const routerTestKey = "router-test-signing-key"

func newTestAPI(t *testing.T) (http.Handler, *jwttoken.Service) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	pipeline := storage.NewPipeline(testutil.TxRunner{}, audit.NewRecorder(auditMemory.New()), m)
	ledger := auditMemory.New()

	userStore := identityMemory.New()
	userService := identity.NewService(userStore, pipeline)
	clientService := client.NewService(clientMemory.New(), pipeline)
	leadService := lead.NewService(leadMemory.New(), clientService, pipeline)

	tokens := jwttoken.New(routerTestKey, "leaddesk-test")
	revoked := revocation.NewMemoryList()
	authService := auth.NewService(userStore, tokens, revoked, time.Hour, log)

	router := httptransport.New(httptransport.Deps{
		Logger:     log,
		Metrics:    m,
		Registry:   registry,
		Gate:       authz.NewGate(tokens),
		Revocation: revoked,
		Auth:       authHandler.New(authService, log),
		Users:      identityHandler.New(userService, log),
		Clients:    clientHandler.New(clientService, log),
		Leads:      leadHandler.New(leadService, log),
		Audit:      auditHandler.New(audit.NewService(ledger)),
	})
	return router, tokens
}

func bearer(t *testing.T, tokens *jwttoken.Service, userID int64, role string) string {
	t.Helper()
	token, err := tokens.GenerateAccessToken(userID, role, time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterRoleGating(t *testing.T) {
	router, tokens := newTestAPI(t)

	testutil.Given(t, "the assembled API router", func(t *testing.T) {
		testutil.When(t, "a request carries no token", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/clients")
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "staff routes are unauthenticated", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
			})
		})

		testutil.When(t, "a sales token calls an admin-only route", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/users")
			req.Header.Set("Authorization", bearer(t, tokens, 3, "sales"))
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "the gate forbids it", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
			})
		})

		testutil.When(t, "a sales token calls a staff route", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/clients", map[string]any{
				"client_type":  "natural",
				"contact_name": "Ana Ventas",
			})
			req.Header.Set("Authorization", bearer(t, tokens, 3, "sales"))
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "the mutation goes through", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
			})
		})

		testutil.When(t, "an admin token calls the audit listing", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodGet, "/audit")
			req.Header.Set("Authorization", bearer(t, tokens, 1, "admin"))
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "it is allowed", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
			})
		})
	})
}

func TestRouterPlatformEndpoints(t *testing.T) {
	router, _ := newTestAPI(t)

	req := testutil.NewRequest(t, http.MethodGet, "/healthz")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "ok")

	req = testutil.NewRequest(t, http.MethodGet, "/metrics")
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusOK(t, rr)
}
