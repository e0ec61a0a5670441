package storage_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaddesk/internal/audit"
	"leaddesk/internal/audit/store/memory"
	"leaddesk/internal/platform/metrics"
	"leaddesk/internal/storage"
	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/testutil"
)

func newPipeline(t *testing.T) (*storage.Pipeline, *memory.Store) {
	t.Helper()
	store := memory.New()
	m := metrics.New(prometheus.NewRegistry())
	return storage.NewPipeline(testutil.TxRunner{}, audit.NewRecorder(store), m), store
}

func TestMutateWritesExactlyOneAuditRecord(t *testing.T) {
	p, ledger := newPipeline(t)

	err := p.Mutate(context.Background(), "client", audit.ActionCreate, 5, func(ctx context.Context) (storage.Result, error) {
		return storage.Result{
			EntityID: 11,
			Next:     audit.NewSnapshot().Set("contact_name", audit.String("Juan Pérez")),
		}, nil
	})
	require.NoError(t, err)

	entries := ledger.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "client", entries[0].Entity)
	assert.Equal(t, int64(11), entries[0].EntityID)
	assert.Equal(t, int64(5), entries[0].ActorID)
}

func TestMutateFailedFunctionWritesNothing(t *testing.T) {
	p, ledger := newPipeline(t)

	boom := dErrors.New(dErrors.CodeConflict, "phone already registered")
	err := p.Mutate(context.Background(), "client", audit.ActionCreate, 5, func(ctx context.Context) (storage.Result, error) {
		return storage.Result{}, boom
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Empty(t, ledger.All())
}

func TestMutateAuditFailureFailsTheMutation(t *testing.T) {
	p, ledger := newPipeline(t)
	ledger.FailAppend = errors.New("disk full")

	called := false
	err := p.Mutate(context.Background(), "lead", audit.ActionCreate, 2, func(ctx context.Context) (storage.Result, error) {
		called = true
		return storage.Result{EntityID: 1, Next: audit.NewSnapshot().Set("x", audit.Int(1))}, nil
	})
	require.Error(t, err)
	assert.True(t, called, "entity write runs before the ledger append")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Empty(t, ledger.All())
}

func TestMutateSerializationFailureFailsTheMutation(t *testing.T) {
	p, ledger := newPipeline(t)

	err := p.Mutate(context.Background(), "lead", audit.ActionCreate, 2, func(ctx context.Context) (storage.Result, error) {
		return storage.Result{
			EntityID: 1,
			Next:     audit.NewSnapshot().Set("score", audit.Float(math.NaN())),
		}, nil
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSerialization))
	assert.Empty(t, ledger.All())
}

func TestMutateNoChangeSkipsTheLedger(t *testing.T) {
	p, ledger := newPipeline(t)

	err := p.Mutate(context.Background(), "user", audit.ActionUpdate, 3, func(ctx context.Context) (storage.Result, error) {
		return storage.Result{}, storage.ErrNoChange
	})
	require.ErrorIs(t, err, storage.ErrNoChange)
	assert.Empty(t, ledger.All(), "a no-op update is not an audited event")
}
