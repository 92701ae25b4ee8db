// Package postgres persists the exam schedule in the relational store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"facegate/internal/schedule"
	"facegate/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Set(ctx context.Context, e schedule.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exam_schedule (subject, exam_date)
		VALUES ($1, $2)
		ON CONFLICT (subject) DO UPDATE SET exam_date = EXCLUDED.exam_date`,
		e.Subject, e.Date,
	)
	if err != nil {
		return fmt.Errorf("upsert schedule entry: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, subject string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exam_schedule WHERE subject = $1`, subject)
	if err != nil {
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) All(ctx context.Context) ([]schedule.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject, exam_date FROM exam_schedule ORDER BY subject`)
	if err != nil {
		return nil, fmt.Errorf("list schedule: %w", err)
	}
	defer rows.Close()

	var out []schedule.Entry
	for rows.Next() {
		var e schedule.Entry
		if err := rows.Scan(&e.Subject, &e.Date); err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
