package engines

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// SidecarEngine talks to a local OCR service over HTTP. The Python engines
// (EasyOCR, PaddleOCR) are served behind a small JSON endpoint rather than
// linked in-process.
type SidecarEngine struct {
	name    string
	baseURL string
	client  *http.Client
}

// sidecarRequest is the wire format sent to the sidecar's /ocr endpoint
type sidecarRequest struct {
	Image    string `json:"image"`
	Language string `json:"language,omitempty"`
}

// sidecarResponse is the wire format returned by the sidecar
type sidecarResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	WordCount  int     `json:"word_count"`
	Error      string  `json:"error,omitempty"`
}

// NewEasyOCR creates a client for an EasyOCR sidecar. EASYOCR_URL overrides
// the default address.
func NewEasyOCR() *SidecarEngine {
	return newSidecar("easyocr", "EASYOCR_URL", "http://localhost:8866")
}

// NewPaddleOCR creates a client for a PaddleOCR sidecar. PADDLEOCR_URL
// overrides the default address.
func NewPaddleOCR() *SidecarEngine {
	return newSidecar("paddleocr", "PADDLEOCR_URL", "http://localhost:8868")
}

func newSidecar(name, envVar, defaultURL string) *SidecarEngine {
	baseURL := os.Getenv(envVar)
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &SidecarEngine{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the engine name
func (e *SidecarEngine) Name() string {
	return e.name
}

// Available pings the sidecar's health endpoint
func (e *SidecarEngine) Available() error {
	resp, err := e.client.Get(e.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("%s sidecar not reachable: %w", e.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s sidecar unhealthy: %d", e.name, resp.StatusCode)
	}
	return nil
}

// Recognize sends the image to the sidecar and returns its answer
func (e *SidecarEngine) Recognize(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	imageData := req.Image
	if len(imageData) == 0 {
		data, err := os.ReadFile(req.ImagePath)
		if err != nil {
			return Result{}, fmt.Errorf("failed to read image: %w", err)
		}
		imageData = data
	}

	requestJSON, err := json.Marshal(sidecarRequest{
		Image:    base64.StdEncoding.EncodeToString(imageData),
		Language: req.Language,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/ocr", bytes.NewBuffer(requestJSON))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("%s sidecar error: %d - %s", e.name, resp.StatusCode, string(body))
	}

	var sidecarResp sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&sidecarResp); err != nil {
		return Result{}, err
	}

	if sidecarResp.Error != "" {
		return Result{}, fmt.Errorf("%s engine error: %s", e.name, sidecarResp.Error)
	}

	return Result{
		Engine:     e.name,
		Text:       strings.TrimSpace(sidecarResp.Text),
		Confidence: sidecarResp.Confidence,
		WordCount:  sidecarResp.WordCount,
		Duration:   time.Since(start),
	}, nil
}
