package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dErrors "facegate/pkg/domain-errors"
)

// HTTPExtractor calls the face-embedding sidecar over HTTP. The sidecar
// owns the detection models; this client only shuttles bytes and maps the
// sidecar's face count onto the tagged result.
type HTTPExtractor struct {
	url    string
	client *http.Client
}

// NewHTTPExtractor builds a client for the sidecar at url.
func NewHTTPExtractor(url string) *HTTPExtractor {
	return &HTTPExtractor{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type extractRequest struct {
	Image string `json:"image"`
}

type extractResponse struct {
	Faces     int       `json:"faces"`
	Embedding []float64 `json:"embedding"`
}

func (e *HTTPExtractor) Extract(ctx context.Context, image []byte) (Result, error) {
	body, err := json.Marshal(extractRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return Result{}, fmt.Errorf("encode extract request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "embedding extractor unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("embedding extractor returned %d", resp.StatusCode))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("decode extract response: %w", err)
	}

	switch {
	case out.Faces == 0:
		return Result{Outcome: OutcomeNoFace}, nil
	case out.Faces > 1:
		return Result{Outcome: OutcomeMultipleFaces}, nil
	}

	if len(out.Embedding) != EmbeddingDim {
		return Result{}, fmt.Errorf("extractor returned %d-dimensional embedding, want %d", len(out.Embedding), EmbeddingDim)
	}
	return Result{Outcome: OutcomeFace, Embedding: out.Embedding}, nil
}
