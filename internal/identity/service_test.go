package identity_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/face"
	"facegate/internal/face/facetest"
	"facegate/internal/identity"
	"facegate/internal/identity/store/memory"
	"facegate/pkg/requestcontext"
)

type recordedEntry struct {
	Actor, Action, Status string
}

type recorderStub struct {
	entries []recordedEntry
}

func (r *recorderStub) Record(_ context.Context, actor, action, status string) {
	r.entries = append(r.entries, recordedEntry{actor, action, status})
}

func stubEnroller(issuer, account string) (string, string, error) {
	return "JBSWY3DPEHPK3PXP", "otpauth://totp/" + issuer + ":" + account, nil
}

func newService(t *testing.T, extractor face.Extractor) (*identity.Service, *memory.Store, *recorderStub) {
	t.Helper()
	store := memory.New()
	recorder := &recorderStub{}
	svc := identity.NewService(store, extractor, recorder, stubEnroller, "FaceGate Test", slog.New(slog.DiscardHandler))
	return svc, store, recorder
}

func testContext() context.Context {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC))
	return requestcontext.WithClientMetadata(ctx, "198.51.100.7", "Firefox 143")
}

func TestRegister(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	svc, store, recorder := newService(t, extractor)
	ctx := testContext()

	reg, err := svc.Register(ctx, "42", "Ada Lovelace", []byte("img"), []string{"math"})
	require.NoError(t, err)
	assert.Equal(t, "42", reg.UserID)
	assert.Equal(t, identity.RoleStudent, reg.Role)
	assert.Contains(t, reg.ProvisioningURI, "otpauth://")

	stored, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	assert.True(t, stored.MFAEnabled)
	assert.Len(t, stored.Embeddings, 1)
	assert.Equal(t, []string{"math"}, stored.ExamSubjects)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, recordedEntry{"42", "REGISTER", "SUCCESS"}, recorder.entries[0])
}

func TestRegisterBootstrapAdminRole(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	svc, _, _ := newService(t, extractor)

	reg, err := svc.Register(testContext(), "1", "Root Admin", []byte("img"), nil)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, reg.Role)
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	svc, _, _ := newService(t, extractor)
	ctx := testContext()

	_, err := svc.Register(ctx, "42", "Ada", []byte("img"), nil)
	require.NoError(t, err)

	_, err = svc.Register(ctx, "42", "Impostor", []byte("img"), nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRegisterRejectsBadInput(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	svc, _, _ := newService(t, extractor)
	ctx := testContext()

	_, err := svc.Register(ctx, "not a valid id!", "Ada", []byte("img"), nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = svc.Register(ctx, "42", "   ", []byte("img"), nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestRegisterBiometricRejections(t *testing.T) {
	extractor := &facetest.Extractor{
		ByImage: map[string]face.Result{
			"empty": {Outcome: face.OutcomeNoFace},
			"crowd": {Outcome: face.OutcomeMultipleFaces},
		},
	}
	svc, _, recorder := newService(t, extractor)
	ctx := testContext()

	_, err := svc.Register(ctx, "42", "Ada", []byte("empty"), nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBiometric))

	_, err = svc.Register(ctx, "42", "Ada", []byte("crowd"), nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBiometric))

	require.Len(t, recorder.entries, 2)
	assert.Equal(t, "NO_FACE", recorder.entries[0].Status)
	assert.Equal(t, "MULTIPLE_FACES", recorder.entries[1].Status)
}

func TestToggleMFA(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	svc, _, _ := newService(t, extractor)
	ctx := testContext()

	_, err := svc.Register(ctx, "42", "Ada", []byte("img"), nil)
	require.NoError(t, err)

	enabled, err := svc.ToggleMFA(ctx, "42")
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = svc.ToggleMFA(ctx, "42")
	require.NoError(t, err)
	assert.True(t, enabled)

	_, err = svc.ToggleMFA(ctx, "missing")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDelete(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	svc, store, recorder := newService(t, extractor)
	ctx := testContext()

	_, err := svc.Register(ctx, "42", "Ada", []byte("img"), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "42"))

	stored, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	assert.True(t, stored.Deleted)
	assert.False(t, stored.Active())
	assert.Empty(t, stored.Embeddings)
	assert.Empty(t, stored.MFASecret)
	assert.Equal(t, "Ada (deleted)", stored.Name)

	assert.Equal(t, recordedEntry{"42", "DELETE_USER", "SUCCESS"}, recorder.entries[len(recorder.entries)-1])

	// Deleting twice conflicts; the record itself persists.
	err = svc.Delete(ctx, "42")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestDeleteBootstrapAdminForbidden(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	svc, _, _ := newService(t, extractor)
	ctx := testContext()

	_, err := svc.Register(ctx, "1", "Root Admin", []byte("img"), nil)
	require.NoError(t, err)

	err = svc.Delete(ctx, "1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestSetExamSubjects(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	svc, store, _ := newService(t, extractor)
	ctx := testContext()

	_, err := svc.Register(ctx, "42", "Ada", []byte("img"), []string{"math"})
	require.NoError(t, err)

	require.NoError(t, svc.SetExamSubjects(ctx, "42", []string{"math", "physics"}))

	stored, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"math", "physics"}, stored.ExamSubjects)

	err = svc.SetExamSubjects(ctx, "missing", []string{"math"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestMarkExamVerifiedAppendOnly(t *testing.T) {
	extractor := &facetest.Extractor{
		Default: face.Result{Outcome: face.OutcomeFace, Embedding: facetest.Vector(0.1)},
	}
	svc, store, recorder := newService(t, extractor)
	ctx := testContext()

	_, err := svc.Register(ctx, "42", "Ada", []byte("img"), nil)
	require.NoError(t, err)
	auditBefore := len(recorder.entries)

	marked, err := svc.MarkExamVerified(ctx, "42", "math")
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = svc.MarkExamVerified(ctx, "42", "math")
	require.NoError(t, err)
	assert.False(t, marked)

	stored, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"math"}, stored.ExamsVerified)

	// Only the first mark lands in the trail.
	require.Len(t, recorder.entries, auditBefore+1)
	assert.Equal(t, recordedEntry{"42", "EXAM_START", "SUCCESS"}, recorder.entries[auditBefore])
}
