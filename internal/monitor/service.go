// Package monitor checks periodic webcam frames against the session
// owner's enrolled embeddings during an exam. Cadence is client-driven;
// the service judges one frame at a time.
package monitor

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/audit"
	"facegate/internal/face"
	"facegate/internal/identity"
	"facegate/internal/ledger"
	"facegate/internal/match"
	"facegate/internal/platform/metrics"
	"facegate/pkg/platform/sentinel"
	"facegate/pkg/requestcontext"
)

var tracer = otel.Tracer("facegate/monitor")

// Outcome classifies one monitoring check.
type Outcome string

const (
	// OutcomeVerified: the frame matched the session owner. Not audited;
	// the trail records exceptions, not heartbeats.
	OutcomeVerified Outcome = "verified"
	// OutcomeWarning: no face in frame. The session continues.
	OutcomeWarning Outcome = "warning"
	// OutcomeAlarm: a face that is not the session owner. Reported and
	// audited; termination stays a proctor decision.
	OutcomeAlarm Outcome = "alarm"
	// OutcomeDataError: the owner has no embeddings to compare against.
	OutcomeDataError Outcome = "data_error"
	// OutcomeTerminated: the client reported the exam over.
	OutcomeTerminated Outcome = "terminated"
)

// CheckResult is the judgment for one frame. Distance is the closest L2
// distance found, meaningful for verified and alarm outcomes.
type CheckResult struct {
	Outcome  Outcome
	Status   string
	Distance float64
}

type Service struct {
	identities identity.Store
	extractor  face.Extractor
	recorder   *audit.Recorder
	tolerance  float64
	logger     *slog.Logger
}

func NewService(identities identity.Store, extractor face.Extractor, recorder *audit.Recorder, tolerance float64, logger *slog.Logger) *Service {
	return &Service{
		identities: identities,
		extractor:  extractor,
		recorder:   recorder,
		tolerance:  tolerance,
		logger:     logger,
	}
}

// Check compares one frame against userID's own enrollments only. The
// monitoring tolerance is looser than the login one; a frame that would
// not open a session can still keep one alive.
func (s *Service) Check(ctx context.Context, userID string, frame []byte) (CheckResult, error) {
	ctx, span := tracer.Start(ctx, "monitor.Check")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	record, err := s.identities.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return CheckResult{}, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return CheckResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}

	result, err := s.extractor.Extract(ctx, frame)
	if err != nil {
		return CheckResult{}, err
	}
	switch result.Outcome {
	case face.OutcomeNoFace:
		s.recorder.Record(ctx, userID, ledger.ActionMonitor, ledger.StatusFaceMissing)
		return CheckResult{Outcome: OutcomeWarning, Status: ledger.StatusFaceMissing}, nil
	case face.OutcomeMultipleFaces:
		// A second person in frame is treated like a mismatch.
		s.logger.WarnContext(ctx, "multiple faces during monitoring",
			"user_id", userID,
			"source", requestcontext.ClientIP(ctx),
			"agent", requestcontext.UserAgent(ctx),
		)
		s.recorder.Record(ctx, userID, ledger.ActionMonitor, ledger.StatusMultipleFaces)
		metrics.FraudAlarms.Inc()
		return CheckResult{Outcome: OutcomeAlarm, Status: ledger.StatusMultipleFaces}, nil
	}

	if len(record.Embeddings) == 0 {
		return CheckResult{Outcome: OutcomeDataError}, nil
	}

	distance, ok := match.Within(result.Embedding, s.tolerance, record.Embeddings)
	if !ok {
		s.logger.WarnContext(ctx, "monitoring face mismatch",
			"user_id", userID,
			"distance", distance,
			"source", requestcontext.ClientIP(ctx),
			"agent", requestcontext.UserAgent(ctx),
		)
		s.recorder.Record(ctx, userID, ledger.ActionMonitor, ledger.StatusFraudDetected)
		metrics.FraudAlarms.Inc()
		return CheckResult{Outcome: OutcomeAlarm, Status: ledger.StatusFraudDetected, Distance: distance}, nil
	}
	return CheckResult{Outcome: OutcomeVerified, Distance: distance}, nil
}

// Terminate records the client-reported end of an exam session. The reason
// is trusted at this layer and kept in the structured log.
func (s *Service) Terminate(ctx context.Context, userID, reason string) CheckResult {
	s.logger.InfoContext(ctx, "exam terminated", "user_id", userID, "reason", reason)
	s.recorder.Record(ctx, userID, ledger.ActionMonitor, ledger.StatusExamTerminated)
	return CheckResult{Outcome: OutcomeTerminated, Status: ledger.StatusExamTerminated}
}
