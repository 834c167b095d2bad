package biometric

import (
	"context"
	"log/slog"

	dErrors "facevote/pkg/domain-errors"
)

// Frame is one decoded capture frame: a row-major RGB pixel array. Image
// decoding (base64, JPEG, camera I/O) happens outside this package; the
// encoder only consumes pixels.
type Frame struct {
	Width  int
	Height int
	RGB    []byte
}

// FaceDetector locates the primary face region in a frame and extracts its
// embedding. Implementations wrap whatever recognition backend is deployed.
// A frame with no detectable face returns (nil, nil), not an error.
type FaceDetector interface {
	DetectEmbedding(ctx context.Context, frame Frame) (Embedding, error)
}

// Encoder turns one or more capture frames into a single identity embedding.
type Encoder struct {
	detector FaceDetector
	logger   *slog.Logger
}

func NewEncoder(detector FaceDetector, logger *slog.Logger) *Encoder {
	return &Encoder{detector: detector, logger: logger}
}

// Encode extracts an embedding from each frame and returns the per-dimension
// mean of the successful extractions. Frames without a detectable face, and
// frames the detector fails on, are skipped and logged. If no frame yields a
// face the call fails; a zero or default vector is never substituted.
func (e *Encoder) Encode(ctx context.Context, frames []Frame) (Embedding, error) {
	if len(frames) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "at least one capture frame is required")
	}

	var extracted []Embedding
	for i, frame := range frames {
		emb, err := e.detector.DetectEmbedding(ctx, frame)
		if err != nil {
			e.logger.WarnContext(ctx, "face detection failed on frame",
				"frame", i,
				"error", err.Error(),
			)
			continue
		}
		if emb == nil {
			continue
		}
		extracted = append(extracted, emb)
	}

	if len(extracted) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no face detected in any frame")
	}
	return Mean(extracted), nil
}
