// Package pdftext reads the embedded text layer of a PDF so documents that
// were born digital can skip the OCR pipeline entirely.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// IsPDF reports whether the path looks like a PDF file.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// ExtractText returns the embedded text layer of a PDF. An empty string with
// a nil error means the PDF has no usable text layer and should go through
// OCR instead.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read text layer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", fmt.Errorf("failed to read text layer: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}
