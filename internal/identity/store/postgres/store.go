// Package postgres persists users.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"leaddesk/internal/identity"
	"leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
	txcontext "leaddesk/pkg/platform/tx"
)

// Store implements identity.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed user store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = "id, username, email, hashed_password, role, active, created_at, updated_at"

func (s *Store) Create(ctx context.Context, u *identity.User) error {
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO users (username, email, hashed_password, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, u.Username, u.Email, u.HashedPassword, u.Role.String(), u.Active, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.New(dErrors.CodeConflict, "username or email already in use")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*identity.User, error) {
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (s *Store) Update(ctx context.Context, u *identity.User) error {
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE users
		SET email = $2, hashed_password = $3, role = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, u.ID, u.Email, u.HashedPassword, u.Role.String(), u.Active, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.New(dErrors.CodeConflict, "email already in use")
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireRowAffected(res, "user")
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return dErrors.New(dErrors.CodeConflict, "user is referenced by existing leads")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRowAffected(res, "user")
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]*identity.User, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (*identity.User, error) {
	u, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return u, nil
}

func scanUserRow(row rowScanner) (*identity.User, error) {
	var (
		u    identity.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func requireRowAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
