package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Clock abstracts time.Now for expiry checks.
type Clock func() time.Time

// PostgresList persists revoked token JTIs in PostgreSQL. It is the fallback
// when Redis is not configured.
type PostgresList struct {
	db    *sql.DB
	clock Clock
}

// PostgresListOption configures a PostgresList instance.
type PostgresListOption func(*PostgresList)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresListOption {
	return func(l *PostgresList) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewPostgresList constructs a PostgreSQL-backed token revocation list.
func NewPostgresList(db *sql.DB, opts ...PostgresListOption) *PostgresList {
	l := &PostgresList{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Revoke adds a token to the revocation list with TTL.
func (t *PostgresList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	expiresAt := t.clock().Add(ttl)
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`, jti, expiresAt)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks if a token is in the revocation list. Rows past their
// expiry are treated as not revoked; the matching token is expired anyway.
func (t *PostgresList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var expiresAt time.Time
	err := t.db.QueryRowContext(ctx, `SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	if t.clock().After(expiresAt) {
		return false, nil
	}
	return true, nil
}

// PurgeExpired deletes rows whose expiry has passed. Intended for a periodic
// maintenance call; revocation correctness does not depend on it.
func (t *PostgresList) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM token_revocations WHERE expires_at < $1`, t.clock())
	if err != nil {
		return 0, fmt.Errorf("purge revocations: %w", err)
	}
	return res.RowsAffected()
}
