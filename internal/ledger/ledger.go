// Package ledger defines the append-only audit trail shared by every
// authentication and monitoring flow. Entries are ordered and immutable;
// the hash-chained backend additionally makes tampering detectable.
package ledger

import (
	"context"
	"time"
)

// Actions recorded in the trail.
const (
	ActionRegister     = "REGISTER"
	ActionLoginAttempt = "LOGIN_ATTEMPT"
	ActionLogin        = "LOGIN"
	ActionMFAVerify    = "MFA_VERIFY"
	ActionMonitor      = "MONITOR"
	ActionLogout       = "LOGOUT"
	ActionDeleteUser   = "DELETE_USER"
	ActionExamStart    = "EXAM_START"
)

// Statuses qualifying an action.
const (
	StatusSuccess        = "SUCCESS"
	StatusUserNotFound   = "USER_NOT_FOUND"
	StatusNoFace         = "NO_FACE"
	StatusMultipleFaces  = "MULTIPLE_FACES"
	StatusFaceMismatch   = "FACE_MISMATCH"
	StatusMFAFailed      = "MFA_FAILED"
	StatusFaceMissing    = "FACE_MISSING"
	StatusFraudDetected  = "FRAUD_DETECTED"
	StatusExamTerminated = "EXAM_TERMINATED"
)

// Entry is one audit record. Index and the digest fields are assigned by
// the backend on append; callers fill in the rest. SourceAddr is the client
// address the action arrived from, empty for internally generated entries.
type Entry struct {
	Index      uint64    `json:"index"`
	Timestamp  time.Time `json:"timestamp"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	SourceAddr string    `json:"source_addr,omitempty"`
	PrevDigest string    `json:"prev_digest,omitempty"`
	Digest     string    `json:"digest,omitempty"`
}

// Ledger is an ordered, append-only audit log. Append assigns the entry's
// position; ReadAll returns every entry in append order.
type Ledger interface {
	Append(ctx context.Context, e Entry) error
	ReadAll(ctx context.Context) ([]Entry, error)
}
