// Package domainerrors provides coded domain errors shared by services and
// the HTTP layer. Services create or wrap errors with a Code; the transport
// layer translates codes into status lines without leaking internals.
package domainerrors

import "errors"

// Code identifies the class of a domain failure.
type Code string

const (
	// CodeBadRequest covers malformed input: missing image or id, bad id
	// format, undecodable payloads.
	CodeBadRequest Code = "bad_request"

	// CodeUnauthorized covers authentication failures: face mismatch,
	// invalid MFA code, missing or revoked session.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden covers authorization failures: non-admin callers on
	// admin-only operations, deletion of the protected admin record.
	CodeForbidden Code = "forbidden"

	// CodeNotFound covers lookups of unknown identities or subjects.
	CodeNotFound Code = "not_found"

	// CodeConflict covers duplicate registration ids and invalid state
	// transitions.
	CodeConflict Code = "conflict"

	// CodeBiometric covers rejections from the face capability: no face in
	// frame, or more than one face. Multiple faces is the severe case and
	// short-circuits registration and authentication entirely.
	CodeBiometric Code = "biometric_rejected"

	// CodeUnavailable covers backing-store and ledger outages.
	CodeUnavailable Code = "unavailable"

	// CodeInternal is the fallback for unexpected faults.
	CodeInternal Code = "internal_error"
)

// Error is a domain error carrying a machine-readable code and a
// human-readable message safe for API responses (except CodeInternal,
// whose message stays server-side).
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// non-domain errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
