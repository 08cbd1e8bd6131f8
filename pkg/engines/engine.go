package engines

import (
	"context"
	"time"
)

// Request encapsulates a single image submitted for OCR.
type Request struct {
	// ImagePath is the originating file path, used for format detection and
	// report output.
	ImagePath string
	// Image is the encoded image payload.
	Image []byte
	// Language is an optional language hint (e.g. "eng", "deu").
	Language string
}

// Result holds one engine's answer for a request.
type Result struct {
	Engine     string        `json:"engine" yaml:"engine"`
	Text       string        `json:"text" yaml:"text"`
	Confidence float64       `json:"confidence" yaml:"confidence"`
	WordCount  int           `json:"word_count" yaml:"word_count"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Engine is a local OCR backend.
type Engine interface {
	// Recognize runs OCR on a single image.
	Recognize(ctx context.Context, req Request) (Result, error)
	// Name returns the engine's name.
	Name() string
	// Available reports whether the backend can be used in this environment.
	Available() error
}
