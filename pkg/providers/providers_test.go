package providers

import (
	"context"
	"os"
	"strings"
	"testing"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ValidateConfig(config Config) error { return nil }

func (s *stubProvider) ExtractText(ctx context.Context, config Config, imagePath, imageBase64 string) (string, UsageInfo, error) {
	return "", UsageInfo{}, nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubProvider{name: "Claude"})
	registry.Register(&stubProvider{name: "gemini"})

	if !registry.HasProvider("claude") {
		t.Error("Expected lookup to be case insensitive on registration")
	}
	if !registry.HasProvider("CLAUDE") {
		t.Error("Expected lookup to be case insensitive on retrieval")
	}
	if registry.HasProvider("mistral") {
		t.Error("Did not expect unregistered provider")
	}

	p, err := registry.Get("claude")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if p.Name() != "Claude" {
		t.Errorf("Expected 'Claude', got '%s'", p.Name())
	}

	if _, err := registry.Get("unknown"); err == nil {
		t.Error("Expected error for unknown provider")
	}

	names := registry.List()
	if len(names) != 2 || names[0] != "claude" || names[1] != "gemini" {
		t.Errorf("Expected sorted [claude gemini], got %v", names)
	}
}

func TestEndpoint(t *testing.T) {
	const envVar = "OCRMUX_TEST_ENDPOINT"

	original := os.Getenv(envVar)
	defer os.Setenv(envVar, original)

	os.Setenv(envVar, "")
	if got := Endpoint(envVar, "https://api.example.com"); got != "https://api.example.com" {
		t.Errorf("Expected default URL, got '%s'", got)
	}

	os.Setenv(envVar, "http://localhost:8080/")
	if got := Endpoint(envVar, "https://api.example.com"); got != "http://localhost:8080" {
		t.Errorf("Expected override with trailing slash trimmed, got '%s'", got)
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no cleaning needed",
			input:    "Simple text",
			expected: "Simple text",
		},
		{
			name:     "remove quotes",
			input:    `"Quoted text"`,
			expected: "Quoted text",
		},
		{
			name:     "remove code blocks",
			input:    "```\nCode block text\n```",
			expected: "Code block text",
		},
		{
			name:     "remove common prefixes",
			input:    "Certainly! Here's the text extracted from the image: Actual content",
			expected: "Actual content",
		},
		{
			name:     "remove image contains prefix",
			input:    "The image contains the following text: Important content",
			expected: "Important content",
		},
		{
			name:     "trim whitespace",
			input:    "   Spaced text   ",
			expected: "Spaced text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanResponse(tt.input)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}

func TestProcessResponse_CustomCleaner(t *testing.T) {
	p := &customCleanerProvider{}
	// The custom cleaner must win over the general pipeline
	result := ProcessResponse(p, "The text in the image is: raw")
	if result != "CUSTOM" {
		t.Errorf("Expected custom cleaner to be used, got '%s'", result)
	}
}

type customCleanerProvider struct {
	stubProvider
}

func (c *customCleanerProvider) CleanResponse(response string) string {
	return "CUSTOM"
}

func TestTruncateBody(t *testing.T) {
	short := []byte("short body")
	if got := TruncateBody(short); got != "short body" {
		t.Errorf("Expected body unchanged, got '%s'", got)
	}

	long := []byte(strings.Repeat("x", 600))
	got := TruncateBody(long)
	if len(got) != 500+len("... (truncated)") {
		t.Errorf("Expected truncation at 500 chars, got length %d", len(got))
	}
	if !strings.HasSuffix(got, "... (truncated)") {
		t.Error("Expected truncation suffix")
	}

	if got := TruncateBody(long, 10); !strings.HasPrefix(got, "xxxxxxxxxx...") {
		t.Errorf("Expected custom limit, got '%s'", got)
	}
}
