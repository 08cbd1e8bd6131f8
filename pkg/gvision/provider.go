package gvision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/ocrmux/ocrmux/pkg/providers"
)

// Provider implements the Google Cloud Vision text detection provider.
// Unlike the LLM providers this is a dedicated OCR API, so the prompt is
// ignored and the language hint from the config is passed through instead.
type Provider struct{}

// New creates a new Cloud Vision provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "gvision"
}

// ValidateConfig validates the Cloud Vision configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS environment variable not set")
	}
	return nil
}

// ExtractText extracts text from an image using the Cloud Vision document
// text detection API
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, imagePath, imageBase64 string) (string, providers.UsageInfo, error) {
	imageData, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to create vision client: %w", err)
	}
	defer client.Close()

	img, err := vision.NewImageFromReader(bytes.NewReader(imageData))
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to read image: %w", err)
	}

	var imageCtx *visionpb.ImageContext
	if config.Language != "" {
		imageCtx = &visionpb.ImageContext{LanguageHints: []string{config.Language}}
	}

	annotation, err := client.DetectDocumentText(ctx, img, imageCtx)
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("vision API error: %w", err)
	}

	if annotation == nil || annotation.GetText() == "" {
		return "", providers.UsageInfo{}, fmt.Errorf("no text detected by Cloud Vision")
	}

	return providers.ProcessResponse(p, annotation.GetText()), providers.UsageInfo{}, nil
}

// CleanResponse trims whitespace only; Cloud Vision returns raw detected
// text, never conversational framing.
func (p *Provider) CleanResponse(response string) string {
	return strings.TrimSpace(response)
}
