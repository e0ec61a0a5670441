package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"leaddesk/internal/audit"
	auditMemory "leaddesk/internal/audit/store/memory"
	"leaddesk/internal/identity"
	"leaddesk/internal/identity/store/memory"
	"leaddesk/internal/platform/metrics"
	"leaddesk/internal/storage"
	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/testutil"
)

const adminID int64 = 1

func newService(t *testing.T) (*identity.Service, *auditMemory.Store) {
	t.Helper()
	ledger := auditMemory.New()
	pipeline := storage.NewPipeline(testutil.TxRunner{}, audit.NewRecorder(ledger), metrics.New(prometheus.NewRegistry()))
	clock := func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	return identity.NewService(memory.New(), pipeline, identity.WithClock(clock)), ledger
}

func strPtr(s string) *string { return &s }

func TestCreateUserAuditsWithoutPasswordMaterial(t *testing.T) {
	svc, ledger := newService(t)

	user, err := svc.Create(context.Background(), adminID, identity.CreateUserRequest{
		Username: "mgonzalez",
		Email:    strPtr("mgonzalez@example.com"),
		Password: "s3cret-pass",
		Role:     "sales",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.True(t, user.Active)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("s3cret-pass")))

	entries := ledger.All()
	require.Len(t, entries, 1)
	assert.Equal(t, identity.EntityName, entries[0].Entity)
	assert.Equal(t, audit.ActionCreate, entries[0].Action)
	assert.NotContains(t, string(entries[0].Next), "password")
	assert.NotContains(t, string(entries[0].Next), "s3cret")
}

func TestCreateUserValidation(t *testing.T) {
	svc, ledger := newService(t)
	ctx := context.Background()

	cases := map[string]identity.CreateUserRequest{
		"short username": {Username: "ab", Password: "longenough", Role: "sales"},
		"bad email":      {Username: "valid", Email: strPtr("nope"), Password: "longenough", Role: "sales"},
		"short password": {Username: "valid", Password: "short", Role: "sales"},
		"unknown role":   {Username: "valid", Password: "longenough", Role: "director"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, adminID, req)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
	assert.Empty(t, ledger.All(), "rejected requests never reach the ledger")
}

func TestCreateUserDuplicateUsernameConflicts(t *testing.T) {
	svc, ledger := newService(t)
	ctx := context.Background()

	req := identity.CreateUserRequest{Username: "dup", Password: "longenough", Role: "sales"}
	_, err := svc.Create(ctx, adminID, req)
	require.NoError(t, err)

	_, err = svc.Create(ctx, adminID, req)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Len(t, ledger.All(), 1, "the failed create must not be audited")
}

func TestUpdateUserAuditsPriorAndNext(t *testing.T) {
	svc, ledger := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, adminID, identity.CreateUserRequest{
		Username: "jlopez", Password: "longenough", Role: "sales",
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, adminID, user.ID, identity.UpdateUserRequest{Role: strPtr("management")})
	require.NoError(t, err)
	assert.Equal(t, "management", updated.Role.String())

	entries := ledger.All()
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionUpdate, entries[1].Action)
	assert.Contains(t, string(entries[1].Prior), `"role":"sales"`)
	assert.Contains(t, string(entries[1].Next), `"role":"management"`)
}

func TestUpdateUserNoChangeIsNotAudited(t *testing.T) {
	svc, ledger := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, adminID, identity.CreateUserRequest{
		Username: "jlopez", Password: "longenough", Role: "sales",
	})
	require.NoError(t, err)

	same, err := svc.Update(ctx, adminID, user.ID, identity.UpdateUserRequest{Role: strPtr("sales")})
	require.NoError(t, err)
	assert.Equal(t, user.ID, same.ID)
	assert.Len(t, ledger.All(), 1, "only the create may be audited")
}

func TestDeleteUserAuditsPriorState(t *testing.T) {
	svc, ledger := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, adminID, identity.CreateUserRequest{
		Username: "to-remove", Password: "longenough", Role: "management",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, adminID, user.ID))

	_, err = svc.Get(ctx, user.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	entries := ledger.All()
	require.Len(t, entries, 2)
	assert.Equal(t, audit.ActionDelete, entries[1].Action)
	assert.Contains(t, string(entries[1].Prior), `"username":"to-remove"`)
	assert.Nil(t, entries[1].Next)
}

func TestDeleteOwnAccountRejected(t *testing.T) {
	svc, ledger := newService(t)

	err := svc.Delete(context.Background(), adminID, adminID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	assert.Empty(t, ledger.All())
}
