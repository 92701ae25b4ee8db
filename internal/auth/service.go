// Package auth drives the two-factor login flow: face verification first,
// then a one-time code, then a signed session token. Every transition,
// successful or not, lands in the audit trail with the caller's network
// origin.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/audit"
	"facegate/internal/auth/jwttoken"
	"facegate/internal/auth/totp"
	"facegate/internal/face"
	"facegate/internal/identity"
	"facegate/internal/ledger"
	"facegate/internal/match"
	"facegate/internal/platform/metrics"
	"facegate/pkg/platform/sentinel"
	"facegate/pkg/requestcontext"
)

var tracer = otel.Tracer("facegate/auth")

// Revoker invalidates a session token id ahead of its natural expiry.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// FaceResult is a successful first factor: the matched identity and
// whether a one-time code is still required before a session is granted.
type FaceResult struct {
	UserID      string
	Distance    float64
	MFARequired bool
}

// Session is a granted exam session.
type Session struct {
	UserID    string
	Role      identity.Role
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	identities identity.Store
	extractor  face.Extractor
	recorder   *audit.Recorder
	issuer     *jwttoken.Issuer
	revoker    Revoker
	tolerance  float64
	logger     *slog.Logger
}

func NewService(identities identity.Store, extractor face.Extractor, recorder *audit.Recorder, issuer *jwttoken.Issuer, revoker Revoker, tolerance float64, logger *slog.Logger) *Service {
	return &Service{
		identities: identities,
		extractor:  extractor,
		recorder:   recorder,
		issuer:     issuer,
		revoker:    revoker,
		tolerance:  tolerance,
		logger:     logger,
	}
}

// errFaceRejected is the unified negative result for the first factor.
// Unknown ids, missing enrollments and mismatches all read the same to the
// caller; the audit trail keeps the distinction.
func errFaceRejected() error {
	return dErrors.New(dErrors.CodeUnauthorized, "face verification failed")
}

// AuthenticateFace runs the first factor. When claimedID is non-empty the
// probe must resolve to that identity; when empty the global best match
// below tolerance wins.
func (s *Service) AuthenticateFace(ctx context.Context, claimedID string, image []byte) (FaceResult, error) {
	ctx, span := tracer.Start(ctx, "auth.AuthenticateFace")
	defer span.End()

	if claimedID != "" {
		if err := identity.ValidateID(claimedID); err != nil {
			return FaceResult{}, err
		}
		record, err := s.identities.FindByID(ctx, claimedID)
		if errors.Is(err, sentinel.ErrNotFound) || (err == nil && !record.Active()) {
			s.recorder.Record(ctx, claimedID, ledger.ActionLoginAttempt, ledger.StatusUserNotFound)
			metrics.LoginFailures.Inc()
			return FaceResult{}, errFaceRejected()
		}
		if err != nil {
			return FaceResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
		}
	}

	probe, err := s.extract(ctx, claimedID, image)
	if err != nil {
		return FaceResult{}, err
	}

	enrollments, err := s.activeEnrollments(ctx)
	if err != nil {
		return FaceResult{}, err
	}

	candidate, ok := match.Match(probe, s.tolerance, enrollments)
	if !ok || (claimedID != "" && candidate.ID != claimedID) {
		actor := claimedID
		if actor == "" {
			actor = "unknown"
		}
		s.recorder.Record(ctx, actor, ledger.ActionLoginAttempt, ledger.StatusFaceMismatch)
		metrics.LoginFailures.Inc()
		return FaceResult{}, errFaceRejected()
	}

	record, err := s.identities.FindByID(ctx, candidate.ID)
	if err != nil {
		return FaceResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}

	span.SetAttributes(attribute.String("user.id", candidate.ID))
	s.recorder.Record(ctx, candidate.ID, ledger.ActionLoginAttempt, ledger.StatusSuccess)
	return FaceResult{
		UserID:      candidate.ID,
		Distance:    candidate.Distance,
		MFARequired: record.MFAEnabled,
	}, nil
}

// VerifyMFA runs the second factor and grants the session. Identities with
// MFA disabled pass straight through; everyone else must present a valid
// one-time code. Each wrong code is audited individually.
func (s *Service) VerifyMFA(ctx context.Context, userID, code string) (Session, error) {
	ctx, span := tracer.Start(ctx, "auth.VerifyMFA")
	defer span.End()

	if err := identity.ValidateID(userID); err != nil {
		return Session{}, err
	}
	record, err := s.identities.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) || (err == nil && !record.Active()) {
		s.recorder.Record(ctx, userID, ledger.ActionMFAVerify, ledger.StatusUserNotFound)
		metrics.LoginFailures.Inc()
		return Session{}, dErrors.New(dErrors.CodeUnauthorized, "verification failed")
	}
	if err != nil {
		return Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}

	now := requestcontext.Now(ctx)
	if record.MFAEnabled {
		if !totp.Verify(code, record.MFASecret, now) {
			s.recorder.Record(ctx, userID, ledger.ActionMFAVerify, ledger.StatusMFAFailed)
			metrics.LoginFailures.Inc()
			return Session{}, dErrors.New(dErrors.CodeUnauthorized, "invalid verification code")
		}
	}

	role := identity.DeriveRole(userID, record.Role)
	token, _, err := s.issuer.Issue(userID, string(role), now)
	if err != nil {
		return Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "session issue failed")
	}

	span.SetAttributes(attribute.String("user.id", userID))
	s.recorder.Record(ctx, userID, ledger.ActionMFAVerify, ledger.StatusSuccess)
	s.recorder.Record(ctx, userID, ledger.ActionLogin, ledger.StatusSuccess)
	metrics.LoginSuccesses.Inc()
	return Session{
		UserID:    userID,
		Role:      role,
		Token:     token,
		ExpiresAt: now.Add(s.issuer.TTL()),
	}, nil
}

// Logout revokes the session token that authenticated the request.
func (s *Service) Logout(ctx context.Context) error {
	jti := requestcontext.SessionJTI(ctx)
	if jti == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "no active session")
	}
	now := requestcontext.Now(ctx)
	if err := s.revoker.Revoke(ctx, jti, now.Add(s.issuer.TTL())); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "logout failed")
	}
	s.recorder.Record(ctx, requestcontext.UserID(ctx), ledger.ActionLogout, ledger.StatusSuccess)
	return nil
}

// extract runs face extraction and maps the no-face and multiple-faces
// outcomes to audited biometric rejections. Multiple faces during a login
// attempt is the more suspicious of the two and is logged as such.
func (s *Service) extract(ctx context.Context, actor string, image []byte) ([]float64, error) {
	if actor == "" {
		actor = "unknown"
	}
	result, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return nil, err
	}
	switch result.Outcome {
	case face.OutcomeNoFace:
		s.recorder.Record(ctx, actor, ledger.ActionLoginAttempt, ledger.StatusNoFace)
		return nil, dErrors.New(dErrors.CodeBiometric, "no face detected in image")
	case face.OutcomeMultipleFaces:
		s.logger.WarnContext(ctx, "multiple faces in login attempt",
			"actor_id", actor,
			"source", requestcontext.ClientIP(ctx),
			"agent", requestcontext.UserAgent(ctx),
		)
		s.recorder.Record(ctx, actor, ledger.ActionLoginAttempt, ledger.StatusMultipleFaces)
		return nil, dErrors.New(dErrors.CodeBiometric, "multiple faces detected in image")
	}
	return result.Embedding, nil
}

func (s *Service) activeEnrollments(ctx context.Context) ([]match.Enrollment, error) {
	records, err := s.identities.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity list failed")
	}
	enrollments := make([]match.Enrollment, 0, len(records))
	for _, r := range records {
		if !r.Active() {
			continue
		}
		enrollments = append(enrollments, match.Enrollment{ID: r.ID, Embeddings: r.Embeddings})
	}
	return enrollments, nil
}
