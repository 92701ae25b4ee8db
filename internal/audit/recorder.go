// Package audit builds ledger entries from request context and applies the
// availability policy: a failed append is logged and counted but never
// blocks the operation that produced it. Reads have no such grace; a
// trail that cannot be read is surfaced as unavailable.
package audit

import (
	"context"
	"log/slog"

	dErrors "facegate/pkg/domain-errors"

	"facegate/internal/ledger"
	"facegate/internal/platform/metrics"
	"facegate/pkg/requestcontext"
)

// Publisher fans committed entries out to an external sink. Implementations
// must not block the request path.
type Publisher interface {
	Publish(ctx context.Context, e ledger.Entry)
}

type Recorder struct {
	ledger    ledger.Ledger
	publisher Publisher
	logger    *slog.Logger
}

// New returns a recorder over the given backend. publisher may be nil.
func New(l ledger.Ledger, publisher Publisher, logger *slog.Logger) *Recorder {
	return &Recorder{ledger: l, publisher: publisher, logger: logger}
}

// Record appends one entry attributed to actor. Timestamp and source
// address come from the request context.
func (r *Recorder) Record(ctx context.Context, actor, action, status string) {
	e := ledger.Entry{
		Timestamp:  requestcontext.Now(ctx),
		ActorID:    actor,
		Action:     action,
		Status:     status,
		SourceAddr: requestcontext.ClientIP(ctx),
	}
	if err := r.ledger.Append(ctx, e); err != nil {
		metrics.AuditAppendFailure.Inc()
		r.logger.Error("audit append failed",
			"actor_id", actor,
			"action", action,
			"status", status,
			"error", err,
		)
		return
	}
	if r.publisher != nil {
		r.publisher.Publish(ctx, e)
	}
}

// ReadAll returns the whole trail in append order.
func (r *Recorder) ReadAll(ctx context.Context) ([]ledger.Entry, error) {
	entries, err := r.ledger.ReadAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit trail unreadable")
	}
	return entries, nil
}
