package cmd

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Score external transcriptions against ground truth",
	Long: `Score transcription output produced outside ocrmux (a single engine run,
another OCR tool) against ground truth transcripts.

The CSV file needs 2 columns: transcript path, transcription path.`,
	RunE: runCompare,
}

var (
	compareCSVPath string
	compareName    string
	compareDir     string
	compareRows    []int
)

func init() {
	RootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVarP(&compareCSVPath, "csv", "c", "", "Path to CSV file with transcript/transcription pairs (required)")
	compareCmd.Flags().StringVarP(&compareName, "name", "n", "", "Name of the source being scored (e.g. 'tesseract') (required)")
	compareCmd.Flags().StringVar(&compareDir, "dir", "./", "Prepend your CSV file paths with a directory")
	compareCmd.Flags().IntSliceVar(&compareRows, "rows", []int{}, "A list of row numbers to process")

	if err := compareCmd.MarkFlagRequired("csv"); err != nil {
		panic(err)
	}
	if err := compareCmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
}

func runCompare(cmd *cobra.Command, args []string) error {
	evalsDir := "evals"
	if err := os.MkdirAll(evalsDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	results, err := processComparison()
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	summary := EvalSummary{
		Config: EvalConfig{
			Target:    "external",
			Model:     compareName,
			CSVPath:   compareCSVPath,
			TestRows:  compareRows,
			Timestamp: time.Now().Format("2006-01-02_15-04-05"),
		},
		Results: results,
	}

	name := strings.ReplaceAll(compareName, ":", "_")
	outputPath := filepath.Join(evalsDir, fmt.Sprintf("%s.yaml", name))
	if err := saveEvalResults(summary, outputPath); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nComparison completed. Results saved to: %s\n", outputPath)
	printSummaryStats(results)

	return nil
}

func processComparison() ([]EvalResult, error) {
	file, err := os.Open(compareCSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	// Skip header row if present
	dataRows := records
	if strings.EqualFold(records[0][0], "transcript") {
		dataRows = records[1:]
	}

	testRows := compareRows
	if len(testRows) == 0 {
		for i := 0; i < len(dataRows); i++ {
			testRows = append(testRows, i)
		}
	}

	var results []EvalResult
	for i, row := range dataRows {
		if !slices.Contains(testRows, i) {
			slog.Warn("Skipping row", "row", i+1)
			continue
		}

		if len(row) < 2 {
			slog.Warn("Insufficient columns (expected 2: transcript, transcription)", "row", i+1, "columns", len(row))
			continue
		}

		result, err := processComparisonRow(row)
		if err != nil {
			slog.Error("Error processing row", "row", i+1, "err", err)
			continue
		}

		results = append(results, result)
		printRowResult(result)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no rows were successfully processed")
	}

	return results, nil
}

func processComparisonRow(row []string) (EvalResult, error) {
	transcriptPath := filepath.Join(compareDir, strings.TrimSpace(row[0]))
	transcriptionPath := filepath.Join(compareDir, strings.TrimSpace(row[1]))

	groundTruth, err := readTextFile(transcriptPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read ground truth transcript: %w", err)
	}

	transcription, err := readTextFile(transcriptionPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read transcription: %w", err)
	}

	metrics := CalculateAccuracyMetrics(groundTruth, transcription)

	return EvalResult{
		Identifier:      filepath.Base(transcriptPath),
		TranscriptPath:  transcriptPath,
		Response:        transcription,
		AccuracyMetrics: metrics,
	}, nil
}
