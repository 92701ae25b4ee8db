// Package facetest provides extraction doubles for unit tests.
package facetest

import (
	"context"

	"facegate/internal/face"
)

// Extractor returns canned results keyed by the raw image bytes, falling
// back to a default result. Zero value returns OutcomeNoFace for everything.
type Extractor struct {
	Default face.Result
	ByImage map[string]face.Result
	Err     error
}

func (e *Extractor) Extract(_ context.Context, image []byte) (face.Result, error) {
	if e.Err != nil {
		return face.Result{}, e.Err
	}
	if r, ok := e.ByImage[string(image)]; ok {
		return r, nil
	}
	return e.Default, nil
}

// Vector builds a deterministic 128-dimensional embedding. All components
// are zero except the first, which is set to v, so the L2 distance between
// Vector(a) and Vector(b) is exactly |a-b|.
func Vector(v float64) []float64 {
	e := make([]float64, face.EmbeddingDim)
	e[0] = v
	return e
}
