//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"leaddesk/internal/audit"
	"leaddesk/internal/audit/store/postgres"
	"leaddesk/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_outbox", "audit_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newRecord(entity string, entityID int64, action audit.Action) *audit.Record {
	rec := &audit.Record{
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		ActorID:   1,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
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
	return rec
}

func (s *PostgresStoreSuite) TestAppendWritesLedgerAndOutbox() {
	ctx := context.Background()

	err := s.store.Append(ctx, s.newRecord("lead", 7, audit.ActionCreate))
	s.Require().NoError(err)

	entries, err := s.store.List(ctx, audit.Filter{})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("lead", entries[0].Entity)
	s.EqualValues(7, entries[0].EntityID)
	s.Equal(audit.ActionCreate, entries[0].Action)
	s.JSONEq(`{"status":"new"}`, string(entries[0].Next))
	s.Nil(entries[0].Prior)

	pending, err := s.store.PendingOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(entries[0].ID, pending[0].RecordID)
	s.Contains(string(pending[0].Payload), `"entity":"lead"`)
}

func (s *PostgresStoreSuite) TestListFiltersAndOrders() {
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	for i := 0; i < 4; i++ {
		rec := s.newRecord("client", int64(i+1), audit.ActionCreate)
		rec.ActorID = int64(i%2 + 1)
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(s.store.Append(ctx, rec))
	}
	s.Require().NoError(s.store.Append(ctx, s.newRecord("lead", 9, audit.ActionUpdate)))

	entries, err := s.store.List(ctx, audit.Filter{Entity: "client", Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(entries, 4)
	for i := 1; i < len(entries); i++ {
		s.False(entries[i].CreatedAt.After(entries[i-1].CreatedAt), "expected newest first")
	}

	entries, err = s.store.List(ctx, audit.Filter{ActorID: 2, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	entries, err = s.store.List(ctx, audit.Filter{Action: audit.ActionUpdate, Limit: 10})
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("lead", entries[0].Entity)
}

func (s *PostgresStoreSuite) TestListByRecordReturnsFullTrail() {
	ctx := context.Background()

	for _, action := range []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete} {
		s.Require().NoError(s.store.Append(ctx, s.newRecord("lead", 3, action)))
	}
	s.Require().NoError(s.store.Append(ctx, s.newRecord("lead", 4, audit.ActionCreate)))

	entries, err := s.store.ListByRecord(ctx, "lead", 3)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	for _, e := range entries {
		s.EqualValues(3, e.EntityID)
	}
}

func (s *PostgresStoreSuite) TestMarkPublishedDrainsOutbox() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Append(ctx, s.newRecord("lead", int64(i+1), audit.ActionCreate)))
	}

	pending, err := s.store.PendingOutbox(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)

	ids := []int64{pending[0].ID, pending[1].ID}
	s.Require().NoError(s.store.MarkPublished(ctx, ids, time.Now().UTC()))

	remaining, err := s.store.PendingOutbox(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(remaining, 1)
	s.NotContains(ids, remaining[0].ID)

	// Marking again is harmless.
	s.Require().NoError(s.store.MarkPublished(ctx, ids, time.Now().UTC()))
}
