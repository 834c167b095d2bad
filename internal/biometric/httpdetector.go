package biometric

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	dErrors "facevote/pkg/domain-errors"
)

// HTTPDetector calls an external face recognition service. The service
// receives raw RGB pixels and answers with the face's embedding, or an
// empty response when no face is present. Recognition models live outside
// this process so the Go service stays model-free.
type HTTPDetector struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDetector(baseURL string, timeout time.Duration) *HTTPDetector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDetector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type detectRequest struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	RGB    string `json:"rgb"`
}

type detectResponse struct {
	Embedding []float64 `json:"embedding"`
}

// DetectEmbedding posts the frame and decodes the embedding. A response
// with no embedding means no face was found, which is not an error.
func (d *HTTPDetector) DetectEmbedding(ctx context.Context, frame Frame) (Embedding, error) {
	payload, err := json.Marshal(detectRequest{
		Width:  frame.Width,
		Height: frame.Height,
		RGB:    base64.StdEncoding.EncodeToString(frame.RGB),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExternal, "face detector unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, dErrors.Newf(dErrors.CodeExternal, "face detector returned %d: %s", resp.StatusCode, body)
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExternal, "decode detector response")
	}
	if len(out.Embedding) == 0 {
		return nil, nil
	}
	if len(out.Embedding) != Dim {
		return nil, dErrors.Newf(dErrors.CodeExternal, "detector returned %d dimensions, want %d", len(out.Embedding), Dim)
	}
	return Embedding(out.Embedding), nil
}
