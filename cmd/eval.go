package cmd

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ocrmux/ocrmux/pkg/engines"
	"github.com/ocrmux/ocrmux/pkg/fusion"
	"github.com/ocrmux/ocrmux/pkg/providers"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

// EvalConfig captures everything needed to rerun an evaluation.
type EvalConfig struct {
	Target      string  `json:"target" yaml:"target"`
	Strategy    string  `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Provider    string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	Prompt      string  `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	CSVPath     string  `json:"csv_path" yaml:"csv_path"`
	TestRows    []int   `json:"rows" yaml:"rows"`
	Timestamp   string  `json:"timestamp" yaml:"timestamp"`
}

// EvalResult is one row's outcome.
type EvalResult struct {
	Identifier     string `json:"identifier" yaml:"identifier"`
	ImagePath      string `json:"image_path" yaml:"image_path"`
	TranscriptPath string `json:"transcript_path" yaml:"transcript_path"`
	Public         bool   `json:"public" yaml:"public"`
	Response       string `json:"response" yaml:"response"`

	AccuracyMetrics `yaml:",inline"`
}

// EvalSummary is what gets persisted to evals/.
type EvalSummary struct {
	Config  EvalConfig   `json:"config" yaml:"config"`
	Results []EvalResult `json:"results" yaml:"results"`
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate OCR accuracy against ground truth transcripts",
	Long: `Evaluate transcription accuracy by comparing pipeline output with ground
truth transcripts.

The CSV file needs 3 columns: image path, transcript path, public flag.
By default the local engine fusion pipeline is evaluated; --target provider
evaluates a single cloud provider instead.`,
	RunE: runEval,
}

var (
	evalTarget      string
	evalStrategy    string
	evalProvider    string
	evalModel       string
	evalPrompt      string
	evalTemperature float64
	evalCSVPath     string
	evalConfigPath  string
	evalDir         string
	evalRows        []int
)

func init() {
	RootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalTarget, "target", "fusion", "What to evaluate: fusion, provider")
	evalCmd.Flags().StringVarP(&evalStrategy, "strategy", "s", "weighted", "Fusion strategy when target is fusion")
	evalCmd.Flags().StringVar(&evalProvider, "provider", "", "Provider to evaluate when target is provider")
	evalCmd.Flags().StringVarP(&evalModel, "model", "m", "", "Model to use when target is provider")
	evalCmd.Flags().StringVarP(&evalPrompt, "prompt", "p", defaultPrompt, "Prompt to send when target is provider")
	evalCmd.Flags().Float64VarP(&evalTemperature, "temperature", "t", 0.0, "Temperature for provider calls")
	evalCmd.Flags().StringVarP(&evalCSVPath, "csv", "c", "", "Path to CSV file with evaluation data")
	evalCmd.Flags().StringVar(&evalConfigPath, "eval-config", "", "Path to a previous evaluation summary to rerun")
	evalCmd.Flags().StringVar(&evalDir, "dir", "./", "Prepend your CSV file paths with a directory")
	evalCmd.Flags().IntSliceVar(&evalRows, "rows", []int{}, "A list of row numbers to run the test on")

	evalCmd.MarkFlagsMutuallyExclusive("csv", "eval-config")
}

func runEval(cmd *cobra.Command, args []string) error {
	var config EvalConfig
	var err error

	if evalConfigPath != "" {
		config, err = loadEvalConfig(evalConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("Loaded configuration from %s\n", evalConfigPath)
	} else {
		if evalCSVPath == "" {
			return fmt.Errorf("either --csv or --eval-config is required")
		}
		config = EvalConfig{
			Target:      evalTarget,
			Strategy:    evalStrategy,
			Provider:    evalProvider,
			Model:       evalModel,
			Prompt:      evalPrompt,
			Temperature: evalTemperature,
			CSVPath:     evalCSVPath,
			Timestamp:   time.Now().Format("2006-01-02_15-04-05"),
		}
	}
	config.TestRows = evalRows

	if config.Target == "provider" && config.Provider == "" {
		return fmt.Errorf("--provider is required when target is provider")
	}

	toolConfig, err := loadToolConfig(cmd)
	if err != nil {
		return err
	}

	evalsDir := "evals"
	if err := os.MkdirAll(evalsDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	results, err := processEvaluation(cmd, config, toolConfig)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	summary := EvalSummary{
		Config:  config,
		Results: results,
	}

	outputPath := filepath.Join(evalsDir, fmt.Sprintf("eval_%s.yaml", config.Timestamp))
	if err := saveEvalResults(summary, outputPath); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nEvaluation completed. Results saved to: %s\n", outputPath)
	printSummaryStats(results)

	return nil
}

func loadEvalConfig(configPath string) (EvalConfig, error) {
	var summary EvalSummary

	data, err := os.ReadFile(configPath)
	if err != nil {
		return EvalConfig{}, err
	}

	if err := yaml.Unmarshal(data, &summary); err != nil {
		return EvalConfig{}, err
	}

	// Update timestamp for rerun
	summary.Config.Timestamp = time.Now().Format("2006-01-02_15-04-05")

	return summary.Config, nil
}

func processEvaluation(cmd *cobra.Command, config EvalConfig, toolConfig ToolConfig) ([]EvalResult, error) {
	file, err := os.Open(config.CSVPath)
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
	if strings.EqualFold(records[0][0], "image") {
		dataRows = records[1:]
	}

	if len(config.TestRows) == 0 {
		config.TestRows = []int{}
		for i := 0; i < len(dataRows); i++ {
			config.TestRows = append(config.TestRows, i)
		}
	}

	var results []EvalResult
	for i, row := range dataRows {
		if !slices.Contains(config.TestRows, i) {
			slog.Warn("Skipping row", "row", i+1)
			continue
		}
		if len(row) < 3 {
			slog.Warn("Insufficient columns", "row", i+1)
			continue
		}

		result, err := processRow(cmd, row, config, toolConfig)
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

func processRow(cmd *cobra.Command, row []string, config EvalConfig, toolConfig ToolConfig) (EvalResult, error) {
	imagePath := filepath.Join(evalDir, strings.TrimSpace(row[0]))
	transcriptPath := filepath.Join(evalDir, strings.TrimSpace(row[1]))
	publicStr := strings.TrimSpace(row[2])

	public, err := strconv.ParseBool(publicStr)
	if err != nil && publicStr != "0" && publicStr != "1" {
		return EvalResult{}, fmt.Errorf("invalid public value: %s", publicStr)
	}
	if publicStr == "1" {
		public = true
	}

	groundTruth, err := readTextFile(transcriptPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read transcript: %w", err)
	}

	var response string
	switch config.Target {
	case "fusion":
		response, err = evalFusionRow(cmd, imagePath, config, toolConfig)
	case "provider":
		response, err = evalProviderRow(cmd, imagePath, config)
	default:
		return EvalResult{}, fmt.Errorf("unknown eval target: %s", config.Target)
	}
	if err != nil {
		return EvalResult{}, err
	}

	metrics := CalculateAccuracyMetrics(groundTruth, response)

	return EvalResult{
		Identifier:      filepath.Base(imagePath),
		ImagePath:       imagePath,
		TranscriptPath:  transcriptPath,
		Public:          public,
		Response:        response,
		AccuracyMetrics: metrics,
	}, nil
}

func evalFusionRow(cmd *cobra.Command, imagePath string, config EvalConfig, toolConfig ToolConfig) (string, error) {
	strategy, err := fusion.ParseStrategy(config.Strategy)
	if err != nil {
		return "", err
	}

	runner, err := buildRunner(toolConfig, nil)
	if err != nil {
		return "", err
	}

	imageData, err := readImageFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	report, err := runner.Run(cmd.Context(), engines.Request{
		ImagePath: imagePath,
		Image:     imageData,
	})
	if err != nil {
		return "", fmt.Errorf("engine run failed: %w", err)
	}

	fused, err := fusion.Fuse(report.Results, strategy, fusionWeights(toolConfig))
	if err != nil {
		return "", err
	}
	return fused.Text, nil
}

func evalProviderRow(cmd *cobra.Command, imagePath string, config EvalConfig) (string, error) {
	registry := newProviderRegistry()
	provider, err := registry.Get(config.Provider)
	if err != nil {
		return "", err
	}

	providerConfig := providers.Config{
		Provider:    config.Provider,
		Model:       config.Model,
		Prompt:      config.Prompt,
		Temperature: config.Temperature,
	}

	if err := provider.ValidateConfig(providerConfig); err != nil {
		return "", fmt.Errorf("provider configuration validation failed: %w", err)
	}

	imageBase64, err := getImageAsBase64(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to process image: %w", err)
	}

	response, _, err := provider.ExtractText(cmd.Context(), providerConfig, imagePath, imageBase64)
	if err != nil {
		return "", fmt.Errorf("provider API call failed: %w", err)
	}
	return response, nil
}

func saveEvalResults(summary EvalSummary, outputPath string) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(outputPath, data, 0644)
}

func printRowResult(result EvalResult) {
	fmt.Printf("\n=== Results for %s ===\n", result.Identifier)
	fmt.Printf("Image: %s\n", result.ImagePath)
	fmt.Printf("Transcript: %s\n", result.TranscriptPath)
	fmt.Printf("Character Similarity: %.3f\n", result.CharacterSimilarity)
	fmt.Printf("Word Similarity: %.3f\n", result.WordSimilarity)
	fmt.Printf("Word Accuracy: %.3f\n", result.WordAccuracy)
	fmt.Printf("Word Error Rate: %.3f\n", result.WordErrorRate)
	fmt.Printf("Total Words (Original): %d\n", result.TotalWordsOriginal)
	fmt.Printf("Total Words (Transcribed): %d\n", result.TotalWordsTranscribed)
	fmt.Printf("Correct Words: %d\n", result.CorrectWords)
	fmt.Printf("Substitutions: %d\n", result.Substitutions)
	fmt.Printf("Deletions: %d\n", result.Deletions)
	fmt.Printf("Insertions: %d\n", result.Insertions)
}

func printSummaryStats(results []EvalResult) {
	if len(results) == 0 {
		return
	}

	var totalCharSim, totalWordSim, totalWordAcc, totalWER float64

	for _, result := range results {
		totalCharSim += result.CharacterSimilarity
		totalWordSim += result.WordSimilarity
		totalWordAcc += result.WordAccuracy
		totalWER += result.WordErrorRate
	}

	count := float64(len(results))

	fmt.Printf("\n=== SUMMARY STATISTICS ===\n")
	fmt.Printf("Total Evaluations: %d\n", len(results))
	fmt.Printf("Average Character Similarity: %.3f\n", totalCharSim/count)
	fmt.Printf("Average Word Similarity: %.3f\n", totalWordSim/count)
	fmt.Printf("Average Word Accuracy: %.3f\n", totalWordAcc/count)
	fmt.Printf("Average Word Error Rate: %.3f\n", totalWER/count)
}
