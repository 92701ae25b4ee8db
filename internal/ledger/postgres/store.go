// Package postgres is the relational ledger backend. Ordering comes from a
// bigserial column rather than hash links; tamper evidence in this mode is
// delegated to the database's own access controls and WAL archiving.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"facegate/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (actor_id, action, status, source, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ActorID, e.Action, e.Status, e.SourceAddr, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) ReadAll(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, action, status, source, created_at
		FROM audit_entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read audit entries: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.Index, &e.ActorID, &e.Action, &e.Status, &e.SourceAddr, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
