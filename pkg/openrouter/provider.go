package openrouter

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
	"time"

	"github.com/ocrmux/ocrmux/internal/utils"
	"github.com/ocrmux/ocrmux/pkg/providers"
)

const defaultAPIURL = "https://openrouter.ai/api"

// Provider implements an OpenRouter-hosted vision provider using the
// OpenAI-compatible chat completions wire format
type Provider struct{}

// Response represents an OpenRouter chat completions response
type Response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// New creates a new OpenRouter provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "openrouter"
}

// ValidateConfig validates the OpenRouter configuration
func (p *Provider) ValidateConfig(config providers.Config) error {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY environment variable not set")
	}
	return nil
}

// ExtractText extracts text from an image using an OpenRouter-hosted model
func (p *Provider) ExtractText(ctx context.Context, config providers.Config, imagePath, imageBase64 string) (string, providers.UsageInfo, error) {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		return "", providers.UsageInfo{}, fmt.Errorf("OPENROUTER_API_KEY environment variable not set")
	}

	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	requestBody := map[string]interface{}{
		"model": config.Model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "text",
						"text": config.Prompt,
					},
					{
						"type": "image_url",
						"image_url": map[string]interface{}{
							"url": fmt.Sprintf("data:%s;base64,%s", mimeType, imageBase64),
						},
					},
				},
			},
		},
		"temperature": config.Temperature,
		"max_tokens":  maxTokens,
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return "", providers.UsageInfo{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := providers.Endpoint("OPENROUTER_API_URL", defaultAPIURL) + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestJSON))
	if err != nil {
		return "", providers.UsageInfo{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", providers.UsageInfo{}, utils.MaskSensitiveError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", providers.UsageInfo{}, fmt.Errorf("openrouter API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	var routerResp Response
	if err := json.NewDecoder(resp.Body).Decode(&routerResp); err != nil {
		return "", providers.UsageInfo{}, err
	}

	if len(routerResp.Choices) == 0 {
		return "", providers.UsageInfo{}, fmt.Errorf("no response from OpenRouter")
	}

	usage := providers.UsageInfo{
		InputTokens:  routerResp.Usage.PromptTokens,
		OutputTokens: routerResp.Usage.CompletionTokens,
	}

	return providers.ProcessResponse(p, routerResp.Choices[0].Message.Content), usage, nil
}
