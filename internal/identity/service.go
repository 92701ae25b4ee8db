package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/face"
	"facegate/internal/ledger"
	"facegate/internal/platform/metrics"
	"facegate/pkg/platform/sentinel"
	"facegate/pkg/requestcontext"
)

// Recorder is the slice of the audit recorder this service needs.
type Recorder interface {
	Record(ctx context.Context, actor, action, status string)
}

// Registration is the one-time enrollment result. The provisioning URI
// carries the MFA secret and is never retrievable again.
type Registration struct {
	UserID          string
	Role            Role
	ProvisioningURI string
}

type Service struct {
	store      Store
	extractor  face.Extractor
	recorder   Recorder
	enroller   func(issuer, account string) (secret, uri string, err error)
	totpIssuer string
	logger     *slog.Logger
}

func NewService(store Store, extractor face.Extractor, recorder Recorder, enroller func(issuer, account string) (secret, uri string, err error), totpIssuer string, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		extractor:  extractor,
		recorder:   recorder,
		enroller:   enroller,
		totpIssuer: totpIssuer,
		logger:     logger,
	}
}

// Register enrolls a new identity from a face image. The id is externally
// assigned; a duplicate is a conflict, never an overwrite.
func (s *Service) Register(ctx context.Context, id, name string, image []byte, examSubjects []string) (Registration, error) {
	if err := ValidateID(id); err != nil {
		return Registration{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Registration{}, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}

	result, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return Registration{}, err
	}
	switch result.Outcome {
	case face.OutcomeNoFace:
		s.recorder.Record(ctx, id, ledger.ActionRegister, ledger.StatusNoFace)
		return Registration{}, dErrors.New(dErrors.CodeBiometric, "no face detected in image")
	case face.OutcomeMultipleFaces:
		s.recorder.Record(ctx, id, ledger.ActionRegister, ledger.StatusMultipleFaces)
		return Registration{}, dErrors.New(dErrors.CodeBiometric, "multiple faces detected in image")
	}

	secret, uri, err := s.enroller(s.totpIssuer, fmt.Sprintf("%s (%s)", name, id))
	if err != nil {
		return Registration{}, dErrors.Wrap(err, dErrors.CodeInternal, "mfa enrollment failed")
	}

	now := requestcontext.Now(ctx)
	record := &Identity{
		ID:           id,
		Name:         name,
		Role:         DeriveRole(id, RoleStudent),
		MFASecret:    secret,
		MFAEnabled:   true,
		ExamSubjects: examSubjects,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := record.AddEmbedding(result.Embedding); err != nil {
		return Registration{}, err
	}

	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Registration{}, dErrors.New(dErrors.CodeConflict, "user id already registered")
		}
		return Registration{}, dErrors.Wrap(err, dErrors.CodeInternal, "registration failed")
	}

	s.recorder.Record(ctx, id, ledger.ActionRegister, ledger.StatusSuccess)
	metrics.Registrations.Inc()
	s.logger.InfoContext(ctx, "registered identity", "user_id", id, "role", record.Role)
	return Registration{UserID: id, Role: record.Role, ProvisioningURI: uri}, nil
}

// List returns every identity, deleted ones included, sorted by id.
func (s *Service) List(ctx context.Context) ([]*Identity, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity list failed")
	}
	return records, nil
}

// ToggleMFA flips the MFA requirement for one identity and returns the new
// state.
func (s *Service) ToggleMFA(ctx context.Context, id string) (bool, error) {
	record, err := s.store.Execute(ctx, id,
		func(r *Identity) error {
			if r.Deleted {
				return dErrors.New(dErrors.CodeConflict, "user is deleted")
			}
			return nil
		},
		func(r *Identity) { r.MFAEnabled = !r.MFAEnabled },
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return false, err
	}
	return record.MFAEnabled, nil
}

// Delete soft-deletes an identity: the record and its id persist but all
// biometric and MFA material is wiped. The bootstrap admin is permanent.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == BootstrapAdminID {
		return dErrors.New(dErrors.CodeConflict, "bootstrap admin cannot be deleted")
	}
	_, err := s.store.Execute(ctx, id,
		func(r *Identity) error {
			if r.Deleted {
				return dErrors.New(dErrors.CodeConflict, "user is already deleted")
			}
			return nil
		},
		func(r *Identity) { r.SoftDelete(requestcontext.Now(ctx)) },
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, id, ledger.ActionDeleteUser, ledger.StatusSuccess)
	return nil
}

// SetExamSubjects replaces the subjects an identity may sit.
func (s *Service) SetExamSubjects(ctx context.Context, id string, subjects []string) error {
	_, err := s.store.Execute(ctx, id,
		func(r *Identity) error {
			if r.Deleted {
				return dErrors.New(dErrors.CodeConflict, "user is deleted")
			}
			return nil
		},
		func(r *Identity) { r.ExamSubjects = subjects },
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return err
}

// MarkExamVerified records in-person verification for a subject. The first
// mark per subject is audited as the exam start; repeats report false and
// leave both the record and the trail untouched.
func (s *Service) MarkExamVerified(ctx context.Context, id, subject string) (bool, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return false, dErrors.New(dErrors.CodeBadRequest, "subject is required")
	}
	var marked bool
	_, err := s.store.Execute(ctx, id,
		func(r *Identity) error {
			if r.Deleted {
				return dErrors.New(dErrors.CodeConflict, "user is deleted")
			}
			return nil
		},
		func(r *Identity) { marked = r.MarkExamVerified(subject) },
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return false, err
	}
	if marked {
		s.recorder.Record(ctx, id, ledger.ActionExamStart, ledger.StatusSuccess)
	}
	return marked, nil
}
