package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ocrmux/ocrmux/internal/utils"
	"github.com/ocrmux/ocrmux/pkg/providers"
)

const defaultAPIURL = "https://api.mistral.ai"

// Provider implements the Mistral document OCR provider. Unlike the chat
// style vision providers, Mistral exposes a dedicated OCR endpoint that
// returns per-page markdown, so no prompt is sent.
type Provider struct{}

// Request represents a Mistral OCR API request
type Request struct {
	Model    string   `json:"model"`
	Document Document `json:"document"`
}

// Document wraps the image data URL sent to the OCR endpoint
type Document struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

// Response represents a Mistral OCR API response
type Response struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
	UsageInfo struct {
		PagesProcessed int `json:"pages_processed"`
	} `json:"usage_info"`
}

// New creates a new Mistral provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "mistral"
}

// ValidateConfig validates the Mistral configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	apiKey := os.Getenv("MISTRAL_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("MISTRAL_API_KEY environment variable not set")
	}
	return nil
}

// ExtractText extracts text from an image using the Mistral OCR API
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, imagePath, imageBase64 string) (string, providers.UsageInfo, error) {
	apiKey := os.Getenv("MISTRAL_API_KEY")
	if apiKey == "" {
		return "", providers.UsageInfo{}, fmt.Errorf("MISTRAL_API_KEY environment variable not set")
	}

	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	model := config.Model
	if model == "" {
		model = "mistral-ocr-latest"
	}

	request := Request{
		Model: model,
		Document: Document{
			Type:     "image_url",
			ImageURL: fmt.Sprintf("data:%s;base64,%s", mimeType, imageBase64),
		},
	}

	requestJSON, err := json.Marshal(request)
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := providers.Endpoint("MISTRAL_API_URL", defaultAPIURL) + "/v1/ocr"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestJSON))
	if err != nil {
		return "", providers.UsageInfo{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", providers.UsageInfo{}, utils.MaskSensitiveError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", providers.UsageInfo{}, fmt.Errorf("mistral API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	var ocrResp Response
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return "", providers.UsageInfo{}, err
	}

	if len(ocrResp.Pages) == 0 {
		return "", providers.UsageInfo{}, fmt.Errorf("no pages in Mistral response")
	}

	var pages []string
	for _, page := range ocrResp.Pages {
		if page.Markdown != "" {
			pages = append(pages, page.Markdown)
		}
	}
	if len(pages) == 0 {
		return "", providers.UsageInfo{}, fmt.Errorf("no text in Mistral response")
	}

	return providers.ProcessResponse(p, strings.Join(pages, "\n\n")), providers.UsageInfo{}, nil
}

// CleanResponse keeps markdown intact; the OCR endpoint returns document
// markup rather than a chat answer, so only whitespace is trimmed.
func (p *Provider) CleanResponse(response string) string {
	return strings.TrimSpace(response)
}
