package engines

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine runs Tesseract in-process through the gosseract client.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewTesseract constructs a Tesseract-backed engine.
func NewTesseract() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

// Name returns the engine name
func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// Available reports whether a usable Tesseract installation is present
func (e *TesseractEngine) Available() error {
	c := e.clientFactory()
	defer c.Close()
	if _, err := c.GetAvailableLanguages(); err != nil {
		return fmt.Errorf("tesseract not available: %w", err)
	}
	return nil
}

// Recognize runs Tesseract on a single image. Confidence is the mean of the
// per-word confidences Tesseract reports, scaled to 0..1.
func (e *TesseractEngine) Recognize(ctx context.Context, req Request) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	start := time.Now()
	c := e.clientFactory()
	defer c.Close()

	if len(req.Image) > 0 {
		if err := c.SetImageFromBytes(req.Image); err != nil {
			return Result{}, fmt.Errorf("set image: %w", err)
		}
	} else {
		if err := c.SetImage(req.ImagePath); err != nil {
			return Result{}, fmt.Errorf("set image: %w", err)
		}
	}

	if req.Language != "" {
		if err := c.SetLanguage(req.Language); err != nil {
			return Result{}, fmt.Errorf("set language: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}
	text = strings.TrimSpace(text)

	confidence, words := wordConfidence(c)

	return Result{
		Engine:     e.Name(),
		Text:       text,
		Confidence: confidence,
		WordCount:  words,
		Duration:   time.Since(start),
	}, nil
}

func wordConfidence(c *gosseract.Client) (float64, int) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0, 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes)), len(boxes)
}
