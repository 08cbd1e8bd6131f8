package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ocrmux/ocrmux/pkg/providers"
)

func TestProvider_Name(t *testing.T) {
	p := New()
	if p.Name() != "gemini" {
		t.Errorf("Expected name 'gemini', got '%s'", p.Name())
	}
}

func TestProvider_ValidateConfig(t *testing.T) {
	p := New()

	tests := []struct {
		name        string
		apiKey      string
		expectError bool
	}{
		{name: "valid API key", apiKey: "test-key", expectError: false},
		{name: "missing API key", apiKey: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := os.Getenv("GEMINI_API_KEY")
			defer os.Setenv("GEMINI_API_KEY", original)
			os.Setenv("GEMINI_API_KEY", tt.apiKey)

			err := p.ValidateConfig(providers.Config{Model: "gemini-2.5-flash"})

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestProvider_ExtractText(t *testing.T) {
	tests := []struct {
		name           string
		model          string
		serverResponse string
		statusCode     int
		expectedText   string
		expectedPath   string
		expectError    bool
		errorContains  string
	}{
		{
			name:       "successful response",
			model:      "gemini-2.5-flash",
			statusCode: http.StatusOK,
			serverResponse: `{
				"candidates": [
					{
						"content": {
							"parts": [{"text": "Extracted text content"}]
						},
						"finishReason": "STOP"
					}
				],
				"usageMetadata": {"promptTokenCount": 50, "candidatesTokenCount": 10}
			}`,
			expectedText: "Extracted text content",
			expectedPath: "/v1beta/models/gemini-2.5-flash:generateContent",
		},
		{
			name:       "default model applied",
			model:      "",
			statusCode: http.StatusOK,
			serverResponse: `{
				"candidates": [
					{"content": {"parts": [{"text": "ok"}]}}
				]
			}`,
			expectedText: "ok",
			expectedPath: "/v1beta/models/gemini-2.5-flash:generateContent",
		},
		{
			name:           "API error response",
			model:          "gemini-2.5-flash",
			statusCode:     http.StatusForbidden,
			serverResponse: `{"error": {"message": "quota exceeded"}}`,
			expectError:    true,
			errorContains:  "gemini API error",
		},
		{
			name:           "no candidates",
			model:          "gemini-2.5-flash",
			statusCode:     http.StatusOK,
			serverResponse: `{"candidates": []}`,
			expectError:    true,
			errorContains:  "no response from Gemini",
		},
		{
			name:           "no parts",
			model:          "gemini-2.5-flash",
			statusCode:     http.StatusOK,
			serverResponse: `{"candidates": [{"content": {"parts": []}}]}`,
			expectError:    true,
			errorContains:  "no parts in Gemini response",
		},
		{
			name:           "empty text",
			model:          "gemini-2.5-flash",
			statusCode:     http.StatusOK,
			serverResponse: `{"candidates": [{"content": {"parts": [{"text": ""}]}}]}`,
			expectError:    true,
			errorContains:  "no text in Gemini response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("Expected POST request, got %s", r.Method)
				}
				if r.URL.Path != tt.expectedPath {
					t.Errorf("Expected path %s, got %s", tt.expectedPath, r.URL.Path)
				}
				if r.URL.Query().Get("key") == "" {
					t.Error("Expected API key in query string")
				}

				var reqBody map[string]interface{}
				if err := json.NewDecoder(r.Body).Decode(&reqBody); err == nil {
					if contents, ok := reqBody["contents"].([]interface{}); !ok || len(contents) == 0 {
						t.Error("Expected contents in request body")
					}
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.serverResponse)); err != nil {
					t.Errorf("Failed to write response: %v", err)
				}
			}))
			defer server.Close()

			originalKey := os.Getenv("GEMINI_API_KEY")
			defer os.Setenv("GEMINI_API_KEY", originalKey)
			os.Setenv("GEMINI_API_KEY", "test-key")

			originalURL := os.Getenv("GEMINI_API_URL")
			defer os.Setenv("GEMINI_API_URL", originalURL)
			os.Setenv("GEMINI_API_URL", server.URL)

			p := New()
			config := providers.Config{
				Provider: "gemini",
				Model:    tt.model,
				Prompt:   "Extract text from this image",
			}

			text, usage, err := p.ExtractText(context.Background(), config, "test.jpg", "aGVsbG8=")

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %v", tt.errorContains, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if text != tt.expectedText {
				t.Errorf("Expected '%s', got '%s'", tt.expectedText, text)
			}
			if tt.name == "successful response" {
				if usage.InputTokens != 50 || usage.OutputTokens != 10 {
					t.Errorf("Expected usage 50/10, got %d/%d", usage.InputTokens, usage.OutputTokens)
				}
			}
		})
	}
}

func TestProvider_ExtractTextMasksAPIKeyInErrors(t *testing.T) {
	originalKey := os.Getenv("GEMINI_API_KEY")
	defer os.Setenv("GEMINI_API_KEY", originalKey)
	os.Setenv("GEMINI_API_KEY", "supersecret123")

	// Transport errors embed the full request URL, key included, so point
	// the provider at a port nothing listens on
	originalURL := os.Getenv("GEMINI_API_URL")
	defer os.Setenv("GEMINI_API_URL", originalURL)
	os.Setenv("GEMINI_API_URL", "http://127.0.0.1:1")

	p := New()
	config := providers.Config{
		Provider: "gemini",
		Model:    "gemini-2.5-flash",
		Prompt:   "Extract text from this image",
	}

	_, _, err := p.ExtractText(context.Background(), config, "test.jpg", "aGVsbG8=")
	if err == nil {
		t.Fatal("Expected a transport error but got none")
	}

	if strings.Contains(err.Error(), "supersecret123") {
		t.Errorf("API key leaked in error: %v", err)
	}
	if !strings.Contains(err.Error(), "***MASKED***") {
		t.Errorf("Expected masked key marker in error, got: %v", err)
	}
}
