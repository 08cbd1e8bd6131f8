package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/ocrmux/ocrmux/pkg/engines"
	"github.com/ocrmux/ocrmux/pkg/fusion"
	"github.com/ocrmux/ocrmux/pkg/pdftext"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all local OCR engines on an image and fuse the results",
	Long: `Run the configured local OCR engines (Tesseract, EasyOCR, PaddleOCR) on an
image concurrently and reduce their answers to a single transcription using
the selected fusion strategy.

PDF inputs with an embedded text layer skip OCR and return the text layer
directly.`,
	RunE: runRun,
}

// RunOutput is the report printed for a fused run.
type RunOutput struct {
	Fused   fusion.Fused          `json:"fused" yaml:"fused"`
	Results []engines.Result      `json:"results" yaml:"results"`
	Errors  []engines.EngineError `json:"errors,omitempty" yaml:"errors,omitempty"`
	Source  string                `json:"source" yaml:"source"`
}

var (
	runImagePath  string
	runStrategy   string
	runEngines    []string
	runLanguage   string
	runOutputPath string
	runFormat     string
)

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runImagePath, "image", "", "Path or URL of the input image or PDF (required)")
	runCmd.Flags().StringVarP(&runStrategy, "strategy", "s", "weighted", "Fusion strategy: best, vote, weighted")
	runCmd.Flags().StringSliceVar(&runEngines, "engines", []string{}, "Engines to run (default: all available)")
	runCmd.Flags().StringVarP(&runLanguage, "language", "l", "", "Language hint for the engines")
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "Output path (prints to stdout if not specified)")
	runCmd.Flags().StringVar(&runFormat, "format", "text", "Output format: text, json, yaml")

	err := runCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	config, err := loadToolConfig(cmd)
	if err != nil {
		return err
	}

	strategy, err := fusion.ParseStrategy(runStrategy)
	if err != nil {
		return err
	}

	// Born-digital PDFs skip OCR entirely
	if pdftext.IsPDF(runImagePath) {
		text, err := resolvePDFText(runImagePath)
		if err != nil {
			return err
		}
		if text != "" {
			slog.Info("PDF has an embedded text layer, skipping OCR", "chars", len(text))
			output := RunOutput{
				Fused:  fusion.Fused{Text: text, Confidence: 1.0, Strategy: strategy, Engines: []string{"pdf-text-layer"}},
				Source: "pdf-text-layer",
			}
			return writeRunOutput(output)
		}
		slog.Info("PDF has no text layer, falling back to OCR")
	}

	imageData, err := readImageFile(runImagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	if config.Engines.MaxEdge > 0 {
		scaled, resized, err := engines.Downscale(imageData, config.Engines.MaxEdge)
		if err != nil {
			return fmt.Errorf("failed to preprocess image: %w", err)
		}
		if resized {
			slog.Info("Downscaled image before OCR", "max_edge", config.Engines.MaxEdge)
			imageData = scaled
		}
	}

	runner, err := buildRunner(config, runEngines)
	if err != nil {
		return err
	}

	slog.Info("Running OCR engines", "image", runImagePath, "engines", runner.Engines(), "strategy", strategy)

	report, err := runner.Run(cmd.Context(), engines.Request{
		ImagePath: runImagePath,
		Image:     imageData,
		Language:  runLanguage,
	})
	if err != nil {
		return fmt.Errorf("engine run failed: %w", err)
	}

	fused, err := fusion.Fuse(report.Results, strategy, fusionWeights(config))
	if err != nil {
		return fmt.Errorf("fusion failed: %w", err)
	}

	slog.Info("Fusion completed", "strategy", strategy, "confidence", fused.Confidence, "engines", fused.Engines)

	return writeRunOutput(RunOutput{
		Fused:   fused,
		Results: report.Results,
		Errors:  report.Errors,
		Source:  "ocr",
	})
}

// resolvePDFText reads a local PDF's text layer. URL PDFs are rejected
// outright: the OCR engines cannot decode PDF bytes, so feeding them a
// downloaded PDF would only fail later with a confusing decode error.
func resolvePDFText(path string) (string, error) {
	if isURL(path) {
		return "", fmt.Errorf("PDF input must be a local file, got URL: %s", path)
	}
	text, err := pdftext.ExtractText(path)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	return text, nil
}

func writeRunOutput(output RunOutput) error {
	var rendered []byte
	switch runFormat {
	case "text":
		rendered = []byte(output.Fused.Text + "\n")
	case "json":
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return err
		}
		rendered = append(data, '\n')
	case "yaml":
		data, err := yaml.Marshal(output)
		if err != nil {
			return err
		}
		rendered = data
	default:
		return fmt.Errorf("unknown output format: %s", runFormat)
	}

	if runOutputPath != "" {
		return os.WriteFile(runOutputPath, rendered, 0644)
	}
	fmt.Print(string(rendered))
	return nil
}
