package ollama

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
	if p.Name() != "ollama" {
		t.Errorf("Expected name 'ollama', got '%s'", p.Name())
	}
}

func TestProvider_ValidateConfig(t *testing.T) {
	p := New()

	// Ollama needs no API key
	if err := p.ValidateConfig(providers.Config{Model: "llava"}); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestProvider_ExtractText(t *testing.T) {
	tests := []struct {
		name           string
		model          string
		serverResponse string
		statusCode     int
		expectedText   string
		expectedModel  string
		expectError    bool
		errorContains  string
	}{
		{
			name:           "successful response",
			model:          "llava",
			statusCode:     http.StatusOK,
			serverResponse: `{"response": "Text from local model", "done": true, "prompt_eval_count": 30, "eval_count": 8}`,
			expectedText:   "Text from local model",
			expectedModel:  "llava",
		},
		{
			name:           "default model applied",
			model:          "",
			statusCode:     http.StatusOK,
			serverResponse: `{"response": "ok", "done": true}`,
			expectedText:   "ok",
			expectedModel:  "llava",
		},
		{
			name:           "custom model passed through",
			model:          "mistral-small3.2:24b",
			statusCode:     http.StatusOK,
			serverResponse: `{"response": "ok", "done": true}`,
			expectedText:   "ok",
			expectedModel:  "mistral-small3.2:24b",
		},
		{
			name:           "API error response",
			model:          "llava",
			statusCode:     http.StatusInternalServerError,
			serverResponse: `model not found`,
			expectError:    true,
			errorContains:  "ollama API error",
		},
		{
			name:           "empty response",
			model:          "llava",
			statusCode:     http.StatusOK,
			serverResponse: `{"response": "", "done": true}`,
			expectError:    true,
			errorContains:  "no response from Ollama",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("Expected POST request, got %s", r.Method)
				}
				if r.URL.Path != "/api/generate" {
					t.Errorf("Expected /api/generate path, got %s", r.URL.Path)
				}

				var reqBody map[string]interface{}
				if err := json.NewDecoder(r.Body).Decode(&reqBody); err == nil {
					if model, _ := reqBody["model"].(string); model != tt.expectedModel {
						t.Errorf("Expected model %s, got %v", tt.expectedModel, reqBody["model"])
					}
					if images, ok := reqBody["images"].([]interface{}); !ok || len(images) != 1 {
						t.Error("Expected one image in request body")
					}
					if stream, ok := reqBody["stream"].(bool); !ok || stream {
						t.Error("Expected stream to be false")
					}
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.serverResponse)); err != nil {
					t.Errorf("Failed to write response: %v", err)
				}
			}))
			defer server.Close()

			original := os.Getenv("OLLAMA_URL")
			defer os.Setenv("OLLAMA_URL", original)
			os.Setenv("OLLAMA_URL", server.URL)

			p := New()
			config := providers.Config{
				Provider: "ollama",
				Model:    tt.model,
				Prompt:   "Extract text from this image",
			}

			text, _, err := p.ExtractText(context.Background(), config, "test.png", "aGVsbG8=")

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
		})
	}
}
