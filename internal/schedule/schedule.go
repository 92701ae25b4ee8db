// Package schedule manages the subject → exam-date table admins maintain.
package schedule

import (
	"context"
	"time"
)

// Entry is one scheduled exam.
type Entry struct {
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
}

// Store persists the schedule. Set upserts, Delete of an unknown subject
// returns sentinel.ErrNotFound, All returns entries sorted by subject.
type Store interface {
	Set(ctx context.Context, e Entry) error
	Delete(ctx context.Context, subject string) error
	All(ctx context.Context) ([]Entry, error)
}
