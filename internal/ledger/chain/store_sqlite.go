package chain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"facegate/internal/ledger"
)

// SQLiteStore persists the chain in a local file so the trail survives
// restarts without requiring a database server.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chain_entries (
	idx          INTEGER PRIMARY KEY,
	timestamp    TEXT NOT NULL,
	actor_id     TEXT NOT NULL,
	action       TEXT NOT NULL,
	status       TEXT NOT NULL,
	source_addr  TEXT NOT NULL DEFAULT '',
	prev_digest  TEXT NOT NULL DEFAULT '',
	digest       TEXT NOT NULL
);`

// OpenSQLite opens (creating if needed) the chain database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open chain db: %w", err)
	}
	// The driver multiplexes poorly over one file; a single connection
	// matches the chain's serialized appends anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create chain schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Append(ctx context.Context, e ledger.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chain_entries (idx, timestamp, actor_id, action, status, source_addr, prev_digest, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Index, e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.ActorID, e.Action, e.Status, e.SourceAddr, e.PrevDigest, e.Digest,
	)
	if err != nil {
		return fmt.Errorf("insert chain entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Last(ctx context.Context) (ledger.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT idx, timestamp, actor_id, action, status, source_addr, prev_digest, digest
		FROM chain_entries ORDER BY idx DESC LIMIT 1`)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, err
	}
	return e, true, nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, timestamp, actor_id, action, status, source_addr, prev_digest, digest
		FROM chain_entries ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("read chain: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row rowScanner) (ledger.Entry, error) {
	var (
		e  ledger.Entry
		ts string
	)
	err := row.Scan(&e.Index, &ts, &e.ActorID, &e.Action, &e.Status, &e.SourceAddr, &e.PrevDigest, &e.Digest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Entry{}, err
		}
		return ledger.Entry{}, fmt.Errorf("scan chain entry: %w", err)
	}
	e.Timestamp, err = parseTimestamp(ts)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("parse chain timestamp: %w", err)
	}
	return e, nil
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

type rowScanner interface {
	Scan(dest ...any) error
}
