package monitor_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/audit"
	"facegate/internal/face"
	"facegate/internal/face/facetest"
	"facegate/internal/identity"
	"facegate/internal/identity/store/memory"
	"facegate/internal/ledger"
	"facegate/internal/ledger/chain"
	"facegate/internal/monitor"
	"facegate/pkg/requestcontext"
)

const monitorTolerance = 0.5

type fixture struct {
	svc    *monitor.Service
	store  *memory.Store
	ledger *chain.Chain
	ctx    context.Context
}

func newFixture(t *testing.T, extractor face.Extractor) *fixture {
	t.Helper()

	store := memory.New()
	ledgerChain, err := chain.New(context.Background(), chain.NewMemoryStore())
	require.NoError(t, err)

	log := slog.New(slog.DiscardHandler)
	recorder := audit.New(ledgerChain, nil, log)
	svc := monitor.NewService(store, extractor, recorder, monitorTolerance, log)

	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC))
	ctx = requestcontext.WithClientMetadata(ctx, "198.51.100.7", "Firefox 143")
	return &fixture{svc: svc, store: store, ledger: ledgerChain, ctx: ctx}
}

func (f *fixture) addUser(t *testing.T, id string, embeddings ...[]float64) {
	t.Helper()
	err := f.store.Create(context.Background(), &identity.Identity{
		ID:         id,
		Name:       "User " + id,
		Role:       identity.RoleStudent,
		Embeddings: embeddings,
	})
	require.NoError(t, err)
}

func (f *fixture) trail(t *testing.T) []ledger.Entry {
	t.Helper()
	entries, err := f.ledger.ReadAll(context.Background())
	require.NoError(t, err)
	return entries[1:]
}

func TestCheckVerified(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.3)},
	}
	f := newFixture(t, extractor)
	f.addUser(t, "42", facetest.Vector(0.0))

	result, err := f.svc.Check(f.ctx, "42", []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeVerified, result.Outcome)
	assert.InDelta(t, 0.3, result.Distance, 1e-12)

	// Heartbeats do not pollute the trail.
	assert.Empty(t, f.trail(t))
}

func TestCheckLooserThanLogin(t *testing.T) {
	// A distance between the strict and monitor tolerances keeps the
	// session alive even though it would not open one.
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.47)},
	}
	f := newFixture(t, extractor)
	f.addUser(t, "42", facetest.Vector(0.0))

	result, err := f.svc.Check(f.ctx, "42", []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeVerified, result.Outcome)
}

func TestCheckNoFaceWarns(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeNoFace},
	}
	f := newFixture(t, extractor)
	f.addUser(t, "42", facetest.Vector(0.0))

	result, err := f.svc.Check(f.ctx, "42", []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeWarning, result.Outcome)
	assert.Equal(t, ledger.StatusFaceMissing, result.Status)

	trail := f.trail(t)
	require.Len(t, trail, 1)
	assert.Equal(t, ledger.StatusFaceMissing, trail[0].Status)
}

func TestCheckMismatchAlarms(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.9)},
	}
	f := newFixture(t, extractor)
	f.addUser(t, "42", facetest.Vector(0.0))

	result, err := f.svc.Check(f.ctx, "42", []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeAlarm, result.Outcome)
	assert.Equal(t, ledger.StatusFraudDetected, result.Status)
	assert.InDelta(t, 0.9, result.Distance, 1e-12)

	trail := f.trail(t)
	require.Len(t, trail, 1)
	assert.Equal(t, ledger.ActionMonitor, trail[0].Action)
	assert.Equal(t, ledger.StatusFraudDetected, trail[0].Status)
	assert.Equal(t, "198.51.100.7", trail[0].SourceAddr)
}

type captureHandler struct {
	records *[]slog.Record
}

func (h captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h captureHandler) Handle(_ context.Context, r slog.Record) error {
	*h.records = append(*h.records, r.Clone())
	return nil
}

func (h captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h captureHandler) WithGroup(string) slog.Handler      { return h }

func TestCheckAlarmLogsClientMetadata(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.9)},
	}
	store := memory.New()
	ledgerChain, err := chain.New(context.Background(), chain.NewMemoryStore())
	require.NoError(t, err)

	var records []slog.Record
	log := slog.New(captureHandler{records: &records})
	svc := monitor.NewService(store, extractor, audit.New(ledgerChain, nil, log), monitorTolerance, log)

	require.NoError(t, store.Create(context.Background(), &identity.Identity{
		ID:         "42",
		Name:       "User 42",
		Role:       identity.RoleStudent,
		Embeddings: [][]float64{facetest.Vector(0.0)},
	}))

	ctx := requestcontext.WithClientMetadata(context.Background(), "198.51.100.7", "Firefox 143")
	result, err := svc.Check(ctx, "42", []byte("frame"))
	require.NoError(t, err)
	require.Equal(t, monitor.OutcomeAlarm, result.Outcome)

	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelWarn, records[0].Level)
	attrs := map[string]string{}
	records[0].Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	assert.Equal(t, "198.51.100.7", attrs["source"])
	assert.Equal(t, "Firefox 143", attrs["agent"])
}

func TestCheckComparesAgainstOwnerOnly(t *testing.T) {
	// The frame matches another enrolled user exactly; monitoring must
	// still alarm because it only compares against the session owner.
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(1.0)},
	}
	f := newFixture(t, extractor)
	f.addUser(t, "42", facetest.Vector(0.0))
	f.addUser(t, "77", facetest.Vector(1.0))

	result, err := f.svc.Check(f.ctx, "42", []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeAlarm, result.Outcome)
}

func TestCheckMultipleFacesAlarms(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeMultipleFaces},
	}
	f := newFixture(t, extractor)
	f.addUser(t, "42", facetest.Vector(0.0))

	result, err := f.svc.Check(f.ctx, "42", []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeAlarm, result.Outcome)
	assert.Equal(t, ledger.StatusMultipleFaces, result.Status)
}

func TestCheckNoEmbeddingsDataError(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	f := newFixture(t, extractor)
	f.addUser(t, "42")

	result, err := f.svc.Check(f.ctx, "42", []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeDataError, result.Outcome)
	assert.Empty(t, f.trail(t))
}

func TestCheckUnknownUser(t *testing.T) {
	f := newFixture(t, &facetest.Extractor{})

	_, err := f.svc.Check(f.ctx, "ghost", []byte("frame"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestTerminate(t *testing.T) {
	f := newFixture(t, &facetest.Extractor{})
	f.addUser(t, "42", facetest.Vector(0.0))

	result := f.svc.Terminate(f.ctx, "42", "submitted")
	assert.Equal(t, monitor.OutcomeTerminated, result.Outcome)

	trail := f.trail(t)
	require.Len(t, trail, 1)
	assert.Equal(t, ledger.ActionMonitor, trail[0].Action)
	assert.Equal(t, ledger.StatusExamTerminated, trail[0].Status)
}
