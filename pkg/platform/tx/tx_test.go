package tx_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/platform/tx"
)

// txJournal records the transaction lifecycle calls the runner makes on the
// driver, so tests can assert begin/commit/rollback ordering without a
// database.
type txJournal struct {
	mu     sync.Mutex
	events []string
}

func (j *txJournal) add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
}

func (j *txJournal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type fakeDriver struct{ journal *txJournal }

func (d *fakeDriver) Open(string) (driver.Conn, error) {
	return &fakeConn{journal: d.journal}, nil
}

type fakeConn struct{ journal *txJournal }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	c.journal.add("begin")
	return &fakeTx{journal: c.journal}, nil
}

type fakeTx struct{ journal *txJournal }

func (t *fakeTx) Commit() error {
	t.journal.add("commit")
	return nil
}

func (t *fakeTx) Rollback() error {
	t.journal.add("rollback")
	return nil
}

var driverSeq atomic.Int64

func newFakeDB(t *testing.T) (*sql.DB, *txJournal) {
	t.Helper()
	journal := &txJournal{}
	name := fmt.Sprintf("tx-fake-%d", driverSeq.Add(1))
	sql.Register(name, &fakeDriver{journal: journal})
	db, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, journal
}

func TestRunInTxCommitsOnSuccess(t *testing.T) {
	db, journal := newFakeDB(t)
	runner := tx.NewRunner(db)

	var sawTx bool
	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		_, sawTx = tx.From(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawTx, "fn should see the transaction in its context")
	assert.Equal(t, []string{"begin", "commit"}, journal.list())
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	db, journal := newFakeDB(t)
	runner := tx.NewRunner(db)

	boom := dErrors.New(dErrors.CodeConflict, "boom")
	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"begin", "rollback"}, journal.list())
}

func TestRunInTxRollsBackOnPanic(t *testing.T) {
	db, journal := newFakeDB(t)
	runner := tx.NewRunner(db)

	func() {
		defer func() {
			require.NotNil(t, recover(), "panic should propagate to the caller")
		}()
		_ = runner.RunInTx(context.Background(), func(ctx context.Context) error {
			panic("nil deref in a store")
		})
	}()

	// The connection must not stay checked out with an open transaction.
	assert.Equal(t, []string{"begin", "rollback"}, journal.list())
}

func TestRunInTxRejectsCancelledContext(t *testing.T) {
	db, journal := newFakeDB(t)
	runner := tx.NewRunner(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.Empty(t, journal.list(), "no transaction should be opened")
}
