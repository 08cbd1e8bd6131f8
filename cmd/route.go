package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ocrmux/ocrmux/pkg/claude"
	"github.com/ocrmux/ocrmux/pkg/gemini"
	"github.com/ocrmux/ocrmux/pkg/gvision"
	"github.com/ocrmux/ocrmux/pkg/mistral"
	"github.com/ocrmux/ocrmux/pkg/ollama"
	"github.com/ocrmux/ocrmux/pkg/openrouter"
	"github.com/ocrmux/ocrmux/pkg/providers"
	"github.com/ocrmux/ocrmux/pkg/router"
	"github.com/spf13/cobra"
)

const defaultPrompt = "Extract all text from this image. Return only the text, preserving line breaks. Do not add commentary."

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Score cloud vision models and extract text with the best one",
	Long: `Score the hosted vision models against the configured weights and the task
requirements, then call them in ranked order until one succeeds.`,
	RunE: runRoute,
}

var (
	routeImagePath     string
	routePrompt        string
	routeTemperature   float64
	routeLanguage      string
	routeHandwriting   bool
	routeTables        bool
	routePreferSpeed   bool
	routePreferQuality bool
	routeOutputPath    string
)

func init() {
	RootCmd.AddCommand(routeCmd)

	routeCmd.Flags().StringVar(&routeImagePath, "image", "", "Path or URL of the input image (required)")
	routeCmd.Flags().StringVarP(&routePrompt, "prompt", "p", defaultPrompt, "Prompt to send to the model")
	routeCmd.Flags().Float64VarP(&routeTemperature, "temperature", "t", 0.0, "Temperature for the model")
	routeCmd.Flags().StringVarP(&routeLanguage, "language", "l", "", "Language hint for the task")
	routeCmd.Flags().BoolVar(&routeHandwriting, "handwriting", false, "The document contains handwriting")
	routeCmd.Flags().BoolVar(&routeTables, "tables", false, "The document contains tables")
	routeCmd.Flags().BoolVar(&routePreferSpeed, "prefer-speed", false, "Weight model speed and cost over quality")
	routeCmd.Flags().BoolVar(&routePreferQuality, "prefer-quality", false, "Weight model quality over speed and cost")
	routeCmd.Flags().StringVarP(&routeOutputPath, "output", "o", "", "Output path (prints to stdout if not specified)")

	routeCmd.MarkFlagsMutuallyExclusive("prefer-speed", "prefer-quality")

	err := routeCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

// newProviderRegistry registers every cloud provider this build knows about.
func newProviderRegistry() *providers.Registry {
	registry := providers.NewRegistry()
	registry.Register(claude.New())
	registry.Register(gemini.New())
	registry.Register(mistral.New())
	registry.Register(openrouter.New())
	registry.Register(gvision.New())
	registry.Register(ollama.New())
	return registry
}

func runRoute(cmd *cobra.Command, args []string) error {
	config, err := loadToolConfig(cmd)
	if err != nil {
		return err
	}

	imageBase64, err := getImageAsBase64(routeImagePath)
	if err != nil {
		return fmt.Errorf("failed to process image: %w", err)
	}

	weights := config.Router.Weights
	if routePreferSpeed {
		weights = router.Weights{Speed: 0.4, Cost: 0.3, Quality: 0.2, Multilingual: 0.1}
	}
	if routePreferQuality {
		weights = router.Weights{Speed: 0.1, Cost: 0.1, Quality: 0.6, Multilingual: 0.2}
	}

	selector := router.NewSelector(config.Router.Models, weights)
	r := router.New(selector, newProviderRegistry())

	requirements := router.Requirements{
		Handwriting: routeHandwriting,
		Tables:      routeTables,
		Language:    routeLanguage,
	}

	providerConfig := providers.Config{
		Prompt:      routePrompt,
		Temperature: routeTemperature,
	}

	routed, err := r.Route(cmd.Context(), providerConfig, requirements, routeImagePath, imageBase64)
	if err != nil {
		return fmt.Errorf("routing failed: %w", err)
	}

	slog.Info("Extraction completed",
		"model", routed.Model,
		"provider", routed.Provider,
		"score", routed.Score,
		"attempts", routed.Attempts,
		"input_tokens", routed.Usage.InputTokens,
		"output_tokens", routed.Usage.OutputTokens)

	if routeOutputPath != "" {
		return os.WriteFile(routeOutputPath, []byte(routed.Text+"\n"), 0644)
	}
	fmt.Println(routed.Text)
	return nil
}
