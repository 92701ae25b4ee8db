// Package face models the opaque face-embedding capability. The gateway
// never sees pixels beyond handing them to an Extractor; it only consumes
// the tagged result: exactly one face (with its embedding), no face, or
// multiple faces. Multiple faces is the security-relevant case and must be
// handled before any matching happens.
package face

import (
	"context"
	"encoding/base64"
	"strings"

	dErrors "facegate/pkg/domain-errors"
)

// EmbeddingDim is the fixed length of every face embedding.
const EmbeddingDim = 128

// Outcome tags the result of an extraction attempt.
type Outcome int

const (
	// OutcomeFace means exactly one face was found; Result.Embedding is set.
	OutcomeFace Outcome = iota
	// OutcomeNoFace means no face was detected in the frame.
	OutcomeNoFace
	// OutcomeMultipleFaces means more than one face was detected. Treated
	// as more severe than no-face: it short-circuits registration and
	// authentication entirely.
	OutcomeMultipleFaces
)

// Result is the tagged outcome of an extraction.
type Result struct {
	Outcome   Outcome
	Embedding []float64
}

// Extractor turns an image into an embedding result. Implementations wrap
// whatever detection backend is deployed; errors are transport or decode
// faults, never "no face" (that is an Outcome).
type Extractor interface {
	Extract(ctx context.Context, image []byte) (Result, error)
}

// DecodeImage accepts the browser capture format: either a bare base64
// string or a data URI ("data:image/jpeg;base64,...").
func DecodeImage(payload string) ([]byte, error) {
	if payload == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing image")
	}
	if _, after, ok := strings.Cut(payload, ","); ok {
		payload = after
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "image decode failed")
	}
	return raw, nil
}
