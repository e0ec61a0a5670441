package audit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaddesk/internal/audit"
	"leaddesk/internal/audit/store/memory"
	dErrors "leaddesk/pkg/domain-errors"
)

func seedLedger(t *testing.T, store *memory.Store, n int) {
	t.Helper()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		entity := "lead"
		action := audit.ActionUpdate
		if i%2 == 0 {
			entity = "client"
			action = audit.ActionCreate
		}
		rec := &audit.Record{
			Entity:    entity,
			EntityID:  int64(i%5 + 1),
			Action:    action,
			Next:      audit.NewSnapshot().Set("seq", audit.Int(int64(i))),
			ActorID:   int64(i%3 + 1),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.Append(context.Background(), rec))
	}
}

func TestListReturnsNewestFirst(t *testing.T) {
	store := memory.New()
	seedLedger(t, store, 6)
	svc := audit.NewService(store)

	entries, err := svc.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 6)
	for i := 1; i < len(entries); i++ {
		assert.True(t, !entries[i].CreatedAt.After(entries[i-1].CreatedAt),
			"entry %d is newer than entry %d", i, i-1)
	}
}

func TestListFilters(t *testing.T) {
	store := memory.New()
	seedLedger(t, store, 10)
	svc := audit.NewService(store)

	t.Run("by entity", func(t *testing.T) {
		entries, err := svc.List(context.Background(), audit.Filter{Entity: "client"})
		require.NoError(t, err)
		require.Len(t, entries, 5)
		for _, e := range entries {
			assert.Equal(t, "client", e.Entity)
		}
	})

	t.Run("by actor", func(t *testing.T) {
		entries, err := svc.List(context.Background(), audit.Filter{ActorID: 2})
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		for _, e := range entries {
			assert.EqualValues(t, 2, e.ActorID)
		}
	})

	t.Run("by action", func(t *testing.T) {
		entries, err := svc.List(context.Background(), audit.Filter{Action: audit.ActionDelete})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestListRejectsUnknownAction(t *testing.T) {
	svc := audit.NewService(memory.New())

	_, err := svc.List(context.Background(), audit.Filter{Action: "upsert"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestListRejectsNegativePaging(t *testing.T) {
	svc := audit.NewService(memory.New())

	for _, filter := range []audit.Filter{{Limit: -1}, {Offset: -10}} {
		_, err := svc.List(context.Background(), filter)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}

func TestListCapsPageSize(t *testing.T) {
	store := memory.New()
	seedLedger(t, store, 120)
	svc := audit.NewService(store)

	t.Run("zero limit defaults to cap", func(t *testing.T) {
		entries, err := svc.List(context.Background(), audit.Filter{})
		require.NoError(t, err)
		assert.Len(t, entries, 100)
	})

	t.Run("oversized limit is clamped", func(t *testing.T) {
		entries, err := svc.List(context.Background(), audit.Filter{Limit: 5000})
		require.NoError(t, err)
		assert.Len(t, entries, 100)
	})

	t.Run("offset pages past the cap", func(t *testing.T) {
		entries, err := svc.List(context.Background(), audit.Filter{Offset: 100})
		require.NoError(t, err)
		assert.Len(t, entries, 20)
	})
}

func TestHistoryReturnsSingleRecordTrail(t *testing.T) {
	store := memory.New()
	svc := audit.NewService(store)
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	for i, action := range []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete} {
		rec := &audit.Record{
			Entity:    "lead",
			EntityID:  7,
			Action:    action,
			ActorID:   1,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		switch action {
		case audit.ActionCreate:
			rec.Next = audit.NewSnapshot().Set("status", audit.String("new"))
		case audit.ActionUpdate:
			rec.Prior = audit.NewSnapshot().Set("status", audit.String("new"))
			rec.Next = audit.NewSnapshot().Set("status", audit.String("contacted"))
		case audit.ActionDelete:
			rec.Prior = audit.NewSnapshot().Set("status", audit.String("contacted"))
		}
		require.NoError(t, store.Append(context.Background(), rec))
	}
	// Noise from another record of the same entity.
	require.NoError(t, store.Append(context.Background(), &audit.Record{
		Entity:    "lead",
		EntityID:  8,
		Action:    audit.ActionCreate,
		Next:      audit.NewSnapshot().Set("status", audit.String("new")),
		ActorID:   1,
		CreatedAt: base,
	}))

	entries, err := svc.History(context.Background(), "lead", 7)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, audit.ActionDelete, entries[0].Action)
	assert.Equal(t, audit.ActionUpdate, entries[1].Action)
	assert.Equal(t, audit.ActionCreate, entries[2].Action)
	assert.JSONEq(t, `{"status":"contacted"}`, string(entries[1].Next))
}

func TestHistoryValidatesInput(t *testing.T) {
	svc := audit.NewService(memory.New())

	cases := map[string]struct {
		entity string
		id     int64
	}{
		"empty entity": {entity: "", id: 1},
		"zero id":      {entity: "lead", id: 0},
		"negative id":  {entity: "lead", id: -4},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.History(context.Background(), tc.entity, tc.id)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation),
				fmt.Sprintf("expected validation error, got %v", err))
		})
	}
}
