package gvision

import (
	"os"
	"strings"
	"testing"

	"github.com/ocrmux/ocrmux/pkg/providers"
)

func TestProvider_Name(t *testing.T) {
	p := New()
	if p.Name() != "gvision" {
		t.Errorf("Expected name 'gvision', got '%s'", p.Name())
	}
}

func TestProvider_ValidateConfig(t *testing.T) {
	p := New()

	tests := []struct {
		name        string
		credentials string
		expectError bool
	}{
		{name: "credentials set", credentials: "/tmp/creds.json", expectError: false},
		{name: "credentials missing", credentials: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
			defer os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", original)
			os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", tt.credentials)

			err := p.ValidateConfig(providers.Config{})

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				} else if !strings.Contains(err.Error(), "GOOGLE_APPLICATION_CREDENTIALS") {
					t.Errorf("Expected credentials error, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestProvider_CleanResponseTrimsOnly(t *testing.T) {
	p := New()

	// Detected text must survive the general cleaning pipeline untouched
	input := "  The text in the image is: a literal sentence  "
	expected := "The text in the image is: a literal sentence"
	if got := providers.ProcessResponse(p, input); got != expected {
		t.Errorf("Expected '%s', got '%s'", expected, got)
	}
}
