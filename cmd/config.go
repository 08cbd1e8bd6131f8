package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ocrmux/ocrmux/pkg/engines"
	"github.com/ocrmux/ocrmux/pkg/fusion"
	"github.com/ocrmux/ocrmux/pkg/router"
	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

// ToolConfig is the optional YAML configuration file. Everything in it has a
// working default, so the file only needs the values being overridden.
type ToolConfig struct {
	Engines struct {
		// Enabled lists which engines to run; empty means all of them.
		Enabled []string `yaml:"enabled"`
		// TimeoutSeconds bounds each engine call.
		TimeoutSeconds int `yaml:"timeout_seconds"`
		// MaxEdge downscales images whose longer edge exceeds this many
		// pixels before OCR; zero disables scaling.
		MaxEdge int `yaml:"max_edge"`
	} `yaml:"engines"`

	Fusion struct {
		Strategy string             `yaml:"strategy"`
		Weights  map[string]float64 `yaml:"weights"`
	} `yaml:"fusion"`

	Router struct {
		Weights router.Weights `yaml:"weights"`
		Models  []router.Model `yaml:"models"`
	} `yaml:"router"`
}

// loadToolConfig reads the config file named by the persistent --config flag,
// falling back to defaults when the flag is unset.
func loadToolConfig(cmd *cobra.Command) (ToolConfig, error) {
	var config ToolConfig
	config.Engines.TimeoutSeconds = 60

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config, err
	}
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Engines.TimeoutSeconds <= 0 {
		config.Engines.TimeoutSeconds = 60
	}

	return config, nil
}

// engineTimeout converts the configured seconds into a duration.
func engineTimeout(config ToolConfig) time.Duration {
	return time.Duration(config.Engines.TimeoutSeconds) * time.Second
}

// buildRunner assembles the engine fan-out runner. engineNames narrows the
// set ("tesseract,easyocr,..."); empty means everything the config enables.
func buildRunner(config ToolConfig, engineNames []string) (*engines.Runner, error) {
	all := []engines.Engine{
		engines.NewTesseract(),
		engines.NewEasyOCR(),
		engines.NewPaddleOCR(),
	}

	wanted := engineNames
	if len(wanted) == 0 {
		wanted = config.Engines.Enabled
	}

	var selected []engines.Engine
	if len(wanted) == 0 {
		selected = all
	} else {
		byName := make(map[string]engines.Engine, len(all))
		for _, e := range all {
			byName[e.Name()] = e
		}
		for _, name := range wanted {
			e, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("unknown engine: %s", name)
			}
			selected = append(selected, e)
		}
	}

	return engines.NewRunner(selected, engineTimeout(config)), nil
}

// fusionWeights merges config overrides over the default engine weights.
func fusionWeights(config ToolConfig) map[string]float64 {
	if len(config.Fusion.Weights) == 0 {
		return fusion.DefaultWeights
	}
	weights := make(map[string]float64, len(fusion.DefaultWeights))
	for k, v := range fusion.DefaultWeights {
		weights[k] = v
	}
	for k, v := range config.Fusion.Weights {
		weights[k] = v
	}
	return weights
}
