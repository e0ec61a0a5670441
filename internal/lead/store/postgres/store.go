// Package postgres persists leads.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"leaddesk/internal/lead"
	dErrors "leaddesk/pkg/domain-errors"
	txcontext "leaddesk/pkg/platform/tx"
)

// Store implements lead.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed lead store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const leadColumns = "id, client_id, channel, status, admin_notes, sales_notes, created_by_id, assigned_to_id, created_at, updated_at"

func (s *Store) Create(ctx context.Context, l *lead.Lead) error {
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO leads (client_id, channel, status, admin_notes, sales_notes, created_by_id, assigned_to_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, l.ClientID, l.Channel.String(), l.Status.String(), l.AdminNotes, l.SalesNotes,
		l.CreatedByID, l.AssignedToID, l.CreatedAt, l.UpdatedAt).Scan(&l.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return dErrors.New(dErrors.CodeValidation, "referenced client or user does not exist")
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*lead.Lead, error) {
	row := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	l, err := scanLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "lead not found")
		}
		return nil, err
	}
	return l, nil
}

func (s *Store) Update(ctx context.Context, l *lead.Lead) error {
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `
		UPDATE leads
		SET client_id = $2, channel = $3, status = $4, admin_notes = $5,
		    sales_notes = $6, assigned_to_id = $7, updated_at = $8
		WHERE id = $1
	`, l.ID, l.ClientID, l.Channel.String(), l.Status.String(), l.AdminNotes,
		l.SalesNotes, l.AssignedToID, l.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return dErrors.New(dErrors.CodeValidation, "referenced client or user does not exist")
		}
		return fmt.Errorf("update lead: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Store) List(ctx context.Context, f lead.Filter) ([]*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := make([]any, 0, 5)
	if f.Status != nil {
		args = append(args, f.Status.String())
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Channel != nil {
		args = append(args, f.Channel.String())
		query += fmt.Sprintf(" AND channel = $%d", len(args))
	}
	if f.AssignedToID != nil {
		args = append(args, *f.AssignedToID)
		query += fmt.Sprintf(" AND assigned_to_id = $%d", len(args))
	}
	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d", len(args))
	args = append(args, f.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return collectLeads(rows)
}

func (s *Store) Stats(ctx context.Context) (*lead.Stats, error) {
	exec := txcontext.Resolve(ctx, s.db)
	stats := &lead.Stats{
		ByStatus:  make(map[string]int64),
		ByChannel: make(map[string]int64),
	}

	rows, err := exec.QueryContext(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("lead stats by status: %w", err)
	}
	if err := collectCounts(rows, stats.ByStatus, &stats.Total); err != nil {
		return nil, err
	}

	rows, err = exec.QueryContext(ctx, `SELECT channel, COUNT(*) FROM leads GROUP BY channel`)
	if err != nil {
		return nil, fmt.Errorf("lead stats by channel: %w", err)
	}
	if err := collectCounts(rows, stats.ByChannel, nil); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Recent(ctx context.Context, since time.Time, limit int) ([]*lead.Lead, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE created_at >= $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("recent leads: %w", err)
	}
	return collectLeads(rows)
}

func collectCounts(rows *sql.Rows, into map[string]int64, total *int64) error {
	defer rows.Close()
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan lead count: %w", err)
		}
		into[key] = count
		if total != nil {
			*total += count
		}
	}
	return rows.Err()
}

func collectLeads(rows *sql.Rows) ([]*lead.Lead, error) {
	defer rows.Close()
	var leads []*lead.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*lead.Lead, error) {
	var (
		l               lead.Lead
		channel, status string
	)
	err := row.Scan(&l.ID, &l.ClientID, &channel, &status, &l.AdminNotes,
		&l.SalesNotes, &l.CreatedByID, &l.AssignedToID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan lead: %w", err)
	}
	l.Channel = lead.Channel(channel)
	l.Status = lead.Status(status)
	return &l, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "lead not found")
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
