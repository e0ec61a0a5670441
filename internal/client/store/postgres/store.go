// Package postgres persists clients.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"leaddesk/internal/client"
	dErrors "leaddesk/pkg/domain-errors"
	txcontext "leaddesk/pkg/platform/tx"
)

// Store implements client.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed client store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const clientColumns = "id, client_type, contact_name, company_name, phone, email, instagram, address, country, created_at, updated_at"

func (s *Store) Create(ctx context.Context, c *client.Client) error {
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO clients (client_type, contact_name, company_name, phone, email, instagram, address, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, c.ClientType.String(), c.ContactName, c.CompanyName, c.Phone, c.Email, c.Instagram, c.Address, c.Country, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.New(dErrors.CodeConflict, "phone already registered")
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*client.Client, error) {
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, err
	}
	return c, nil
}

func (s *Store) Update(ctx context.Context, c *client.Client) error {
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE clients
		SET client_type = $2, contact_name = $3, company_name = $4, phone = $5,
		    email = $6, instagram = $7, address = $8, country = $9, updated_at = $10
		WHERE id = $1
	`, c.ID, c.ClientType.String(), c.ContactName, c.CompanyName, c.Phone, c.Email, c.Instagram, c.Address, c.Country, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return dErrors.New(dErrors.CodeConflict, "phone already registered")
		}
		return fmt.Errorf("update client: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return dErrors.New(dErrors.CodeConflict, "client is referenced by existing leads")
		}
		return fmt.Errorf("delete client: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]*client.Client, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return collectClients(rows)
}

// Search matches by exact phone, partial case-insensitive contact name, or
// both.
func (s *Store) Search(ctx context.Context, phone, name string, limit int) ([]*client.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE 1=1`
	args := make([]any, 0, 3)
	if phone != "" {
		args = append(args, phone)
		query += fmt.Sprintf(" AND phone = $%d", len(args))
	}
	if name != "" {
		args = append(args, "%"+name+"%")
		query += fmt.Sprintf(" AND contact_name ILIKE $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))

	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search clients: %w", err)
	}
	return collectClients(rows)
}

func collectClients(rows *sql.Rows) ([]*client.Client, error) {
	defer rows.Close()
	var clients []*client.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*client.Client, error) {
	var (
		c          client.Client
		clientType string
	)
	err := row.Scan(&c.ID, &clientType, &c.ContactName, &c.CompanyName, &c.Phone,
		&c.Email, &c.Instagram, &c.Address, &c.Country, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	c.ClientType = client.Type(clientType)
	return &c, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "client not found")
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
