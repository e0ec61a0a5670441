package testutil

import "context"

// TxRunner satisfies the mutation pipeline's transaction interface without a
// database. It runs the function directly; rollback semantics are covered by
// the Postgres integration tests.
type TxRunner struct{}

func (TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
