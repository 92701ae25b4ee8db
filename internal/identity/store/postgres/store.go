// Package postgres persists identities in the relational store. Embeddings
// and subject sets are stored as JSONB; the serialization format stays an
// implementation detail behind the store boundary.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"facegate/internal/identity"
	"facegate/pkg/platform/sentinel"
	"facegate/pkg/requestcontext"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const columns = "id, name, role, embeddings, mfa_secret, mfa_enabled, exam_subjects, exams_verified, deleted, created_at, updated_at"

func (s *Store) Create(ctx context.Context, record *identity.Identity) error {
	embeddings, subjects, verified, err := marshalSets(record)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO identities (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.Name, string(record.Role), embeddings,
		record.MFASecret, record.MFAEnabled, subjects, verified,
		record.Deleted, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

func (s *Store) List(ctx context.Context) ([]*identity.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []*identity.Identity
	for rows.Next() {
		record, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Execute validates and mutates one record inside a transaction holding a
// row lock, mirroring the memory store's single exclusion scope.
func (s *Store) Execute(ctx context.Context, id string, validate func(*identity.Identity) error, mutate func(*identity.Identity)) (*identity.Identity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+columns+` FROM identities WHERE id = $1 FOR UPDATE`, id)
	record, err := scanIdentity(row)
	if err != nil {
		return nil, err
	}

	if validate != nil {
		if err := validate(record); err != nil {
			return nil, err
		}
	}
	mutate(record)
	record.UpdatedAt = requestcontext.Now(ctx)

	embeddings, subjects, verified, err := marshalSets(record)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE identities
		SET name = $2, role = $3, embeddings = $4, mfa_secret = $5,
		    mfa_enabled = $6, exam_subjects = $7, exams_verified = $8,
		    deleted = $9, updated_at = $10
		WHERE id = $1`,
		record.ID, record.Name, string(record.Role), embeddings,
		record.MFASecret, record.MFAEnabled, subjects, verified,
		record.Deleted, record.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update identity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit identity update: %w", err)
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*identity.Identity, error) {
	var (
		record     identity.Identity
		role       string
		embeddings []byte
		subjects   []byte
		verified   []byte
	)
	err := row.Scan(&record.ID, &record.Name, &role, &embeddings,
		&record.MFASecret, &record.MFAEnabled, &subjects, &verified,
		&record.Deleted, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	record.Role = identity.Role(role)
	if err := json.Unmarshal(embeddings, &record.Embeddings); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	if err := json.Unmarshal(subjects, &record.ExamSubjects); err != nil {
		return nil, fmt.Errorf("decode exam subjects: %w", err)
	}
	if err := json.Unmarshal(verified, &record.ExamsVerified); err != nil {
		return nil, fmt.Errorf("decode exams verified: %w", err)
	}
	return &record, nil
}

func marshalSets(record *identity.Identity) (embeddings, subjects, verified []byte, err error) {
	if embeddings, err = json.Marshal(nonNilEmbeddings(record.Embeddings)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode embeddings: %w", err)
	}
	if subjects, err = json.Marshal(nonNil(record.ExamSubjects)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode exam subjects: %w", err)
	}
	if verified, err = json.Marshal(nonNil(record.ExamsVerified)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode exams verified: %w", err)
	}
	return embeddings, subjects, verified, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilEmbeddings(e [][]float64) [][]float64 {
	if e == nil {
		return [][]float64{}
	}
	return e
}
