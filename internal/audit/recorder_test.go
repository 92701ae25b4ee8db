package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/ledger"
	"facegate/pkg/requestcontext"
)

type fakeLedger struct {
	entries   []ledger.Entry
	appendErr error
	readErr   error
}

func (f *fakeLedger) Append(_ context.Context, e ledger.Entry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLedger) ReadAll(context.Context) ([]ledger.Entry, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.entries, nil
}

type capturingPublisher struct {
	published []ledger.Entry
}

func (p *capturingPublisher) Publish(_ context.Context, e ledger.Entry) {
	p.published = append(p.published, e)
}

func TestRecordAttributesFromContext(t *testing.T) {
	backend := &fakeLedger{}
	recorder := New(backend, nil, slog.New(slog.DiscardHandler))

	now := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithClientMetadata(ctx, "198.51.100.7", "Firefox 143")

	recorder.Record(ctx, "42", ledger.ActionLogin, ledger.StatusSuccess)

	require.Len(t, backend.entries, 1)
	e := backend.entries[0]
	assert.Equal(t, "42", e.ActorID)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, "198.51.100.7", e.SourceAddr)
}

func TestRecordFailOpen(t *testing.T) {
	backend := &fakeLedger{appendErr: errors.New("disk full")}
	publisher := &capturingPublisher{}
	recorder := New(backend, publisher, slog.New(slog.DiscardHandler))

	// Must not panic or propagate; the primary operation already happened.
	recorder.Record(context.Background(), "42", ledger.ActionLogin, ledger.StatusSuccess)

	assert.Empty(t, backend.entries)
	assert.Empty(t, publisher.published, "failed appends are not fanned out")
}

func TestRecordFansOutCommittedEntries(t *testing.T) {
	backend := &fakeLedger{}
	publisher := &capturingPublisher{}
	recorder := New(backend, publisher, slog.New(slog.DiscardHandler))

	recorder.Record(context.Background(), "42", ledger.ActionMonitor, ledger.StatusFraudDetected)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, ledger.StatusFraudDetected, publisher.published[0].Status)
}

func TestReadAllSurfacesLedgerFailure(t *testing.T) {
	backend := &fakeLedger{readErr: errors.New("corrupt")}
	recorder := New(backend, nil, slog.New(slog.DiscardHandler))

	_, err := recorder.ReadAll(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}
