package pdftext

import (
	"testing"
)

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "lowercase extension", path: "scan.pdf", expected: true},
		{name: "uppercase extension", path: "SCAN.PDF", expected: true},
		{name: "nested path", path: "/data/in/batch-01/page.pdf", expected: true},
		{name: "png image", path: "scan.png", expected: false},
		{name: "no extension", path: "scan", expected: false},
		{name: "pdf in directory name only", path: "pdf/scan.jpg", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPDF(tt.path); got != tt.expected {
				t.Errorf("IsPDF(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestExtractTextMissingFile(t *testing.T) {
	_, err := ExtractText("/nonexistent/file.pdf")
	if err == nil {
		t.Error("Expected error for missing file, got none")
	}
}
