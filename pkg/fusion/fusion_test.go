package fusion

import (
	"testing"

	"github.com/ocrmux/ocrmux/pkg/engines"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Strategy
		expectError bool
	}{
		{name: "best", input: "best", expected: StrategyBest},
		{name: "vote", input: "vote", expected: StrategyVote},
		{name: "weighted", input: "weighted", expected: StrategyWeighted},
		{name: "case insensitive", input: "BEST", expected: StrategyBest},
		{name: "surrounding whitespace", input: " vote ", expected: StrategyVote},
		{name: "unknown", input: "magic", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, err := ParseStrategy(tt.input)
			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
			if strategy != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, strategy)
			}
		})
	}
}

func TestFuse_EmptyResults(t *testing.T) {
	_, err := Fuse(nil, StrategyBest, nil)
	if err == nil {
		t.Error("Expected error for empty results")
	}
}

func TestFuse_SingleResult(t *testing.T) {
	results := []engines.Result{
		{Engine: "tesseract", Text: "hello world", Confidence: 0.5},
	}

	for _, strategy := range []Strategy{StrategyBest, StrategyVote, StrategyWeighted} {
		fused, err := Fuse(results, strategy, nil)
		if err != nil {
			t.Fatalf("Expected no error for strategy %s, got: %v", strategy, err)
		}
		if fused.Text != "hello world" {
			t.Errorf("Expected 'hello world', got '%s'", fused.Text)
		}
		if fused.Confidence != 0.5 {
			t.Errorf("Expected confidence 0.5, got %f", fused.Confidence)
		}
		if len(fused.Engines) != 1 || fused.Engines[0] != "tesseract" {
			t.Errorf("Expected engines [tesseract], got %v", fused.Engines)
		}
	}
}

func TestFuse_Best(t *testing.T) {
	results := []engines.Result{
		{Engine: "tesseract", Text: "helo world", Confidence: 0.62},
		{Engine: "paddleocr", Text: "hello world", Confidence: 0.91},
		{Engine: "easyocr", Text: "hello wor1d", Confidence: 0.78},
	}

	fused, err := Fuse(results, StrategyBest, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if fused.Text != "hello world" {
		t.Errorf("Expected 'hello world', got '%s'", fused.Text)
	}
	if fused.Confidence != 0.91 {
		t.Errorf("Expected confidence 0.91, got %f", fused.Confidence)
	}
	if len(fused.Engines) != 1 || fused.Engines[0] != "paddleocr" {
		t.Errorf("Expected engines [paddleocr], got %v", fused.Engines)
	}
}

func TestFuse_Vote(t *testing.T) {
	tests := []struct {
		name               string
		results            []engines.Result
		expectedText       string
		expectedConfidence float64
	}{
		{
			name: "majority wins over higher confidence outlier",
			results: []engines.Result{
				{Engine: "tesseract", Text: "hello world", Confidence: 0.6},
				{Engine: "easyocr", Text: "hello world", Confidence: 0.7},
				{Engine: "paddleocr", Text: "hallo world", Confidence: 0.99},
			},
			expectedText:       "hello world",
			expectedConfidence: 0.65,
		},
		{
			name: "tie broken by summed confidence",
			results: []engines.Result{
				{Engine: "tesseract", Text: "alpha", Confidence: 0.5},
				{Engine: "easyocr", Text: "beta", Confidence: 0.9},
			},
			expectedText:       "beta",
			expectedConfidence: 0.9,
		},
		{
			name: "whitespace and case differences vote together",
			results: []engines.Result{
				{Engine: "tesseract", Text: "Hello  World", Confidence: 0.6},
				{Engine: "easyocr", Text: "hello world", Confidence: 0.8},
				{Engine: "paddleocr", Text: "goodbye", Confidence: 0.9},
			},
			expectedText:       "Hello  World",
			expectedConfidence: 0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fused, err := Fuse(tt.results, StrategyVote, nil)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if fused.Text != tt.expectedText {
				t.Errorf("Expected '%s', got '%s'", tt.expectedText, fused.Text)
			}
			if !almostEqual(fused.Confidence, tt.expectedConfidence) {
				t.Errorf("Expected confidence %f, got %f", tt.expectedConfidence, fused.Confidence)
			}
		})
	}
}

func TestFuse_Weighted(t *testing.T) {
	weights := map[string]float64{
		"paddleocr": 1.2,
		"tesseract": 1.0,
		"easyocr":   0.8,
	}

	// paddleocr alone scores 1.2*0.9=1.08 and beats
	// tesseract+easyocr agreeing at 1.0*0.5+0.8*0.6=0.98
	results := []engines.Result{
		{Engine: "tesseract", Text: "hell0 world", Confidence: 0.5},
		{Engine: "easyocr", Text: "hell0 world", Confidence: 0.6},
		{Engine: "paddleocr", Text: "hello world", Confidence: 0.9},
	}

	fused, err := Fuse(results, StrategyWeighted, weights)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if fused.Text != "hello world" {
		t.Errorf("Expected 'hello world', got '%s'", fused.Text)
	}
	// Weighted average over the winning group: 1.08 / 1.2
	if !almostEqual(fused.Confidence, 0.9) {
		t.Errorf("Expected confidence 0.9, got %f", fused.Confidence)
	}
}

func TestFuse_WeightedAgreementBeatsSingleEngine(t *testing.T) {
	results := []engines.Result{
		{Engine: "tesseract", Text: "hello world", Confidence: 0.8},
		{Engine: "easyocr", Text: "hello world", Confidence: 0.75},
		{Engine: "paddleocr", Text: "hallo wurld", Confidence: 0.85},
	}

	fused, err := Fuse(results, StrategyWeighted, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	// tesseract+easyocr: 1.0*0.8 + 0.8*0.75 = 1.4 beats paddleocr 1.2*0.85 = 1.02
	if fused.Text != "hello world" {
		t.Errorf("Expected 'hello world', got '%s'", fused.Text)
	}
	if len(fused.Engines) != 2 {
		t.Errorf("Expected 2 backing engines, got %v", fused.Engines)
	}
}

func TestFuse_UnknownEngineGetsDefaultWeight(t *testing.T) {
	results := []engines.Result{
		{Engine: "custom", Text: "alpha", Confidence: 0.9},
		{Engine: "easyocr", Text: "beta", Confidence: 0.9},
	}

	fused, err := Fuse(results, StrategyWeighted, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	// custom gets weight 1.0 and beats easyocr at 0.8
	if fused.Text != "alpha" {
		t.Errorf("Expected 'alpha', got '%s'", fused.Text)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases", input: "Hello World", expected: "hello world"},
		{name: "collapses whitespace", input: "hello\t \nworld", expected: "hello world"},
		{name: "trims", input: "  hello  ", expected: "hello"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
