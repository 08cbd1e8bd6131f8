package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ocrmux/ocrmux/pkg/providers"
)

// Routed is the outcome of a successful routed extraction.
type Routed struct {
	Model    string              `json:"model" yaml:"model"`
	Provider string              `json:"provider" yaml:"provider"`
	Score    float64             `json:"score" yaml:"score"`
	Text     string              `json:"text" yaml:"text"`
	Usage    providers.UsageInfo `json:"-" yaml:"-"`
	// Attempts counts how many models were tried before one succeeded.
	Attempts int `json:"attempts" yaml:"attempts"`
}

// Router scores the model table and calls providers in ranked order until
// one succeeds.
type Router struct {
	selector *Selector
	registry *providers.Registry
}

// New creates a router over a selector and a provider registry.
func New(selector *Selector, registry *providers.Registry) *Router {
	return &Router{selector: selector, registry: registry}
}

// Route tries the ranked models in order. Models whose provider is not
// registered or not configured are skipped; API failures fall through to the
// next model. The last error is returned if every model fails.
func (r *Router) Route(ctx context.Context, config providers.Config, req Requirements, imagePath, imageBase64 string) (Routed, error) {
	ranked := r.selector.Rank(req)
	if len(ranked) == 0 {
		return Routed{}, fmt.Errorf("no models configured")
	}

	var lastErr error
	attempts := 0
	for _, scored := range ranked {
		provider, err := r.registry.Get(scored.Model.Provider)
		if err != nil {
			slog.Debug("Skipping model with unknown provider", "model", scored.Model.Name, "provider", scored.Model.Provider)
			continue
		}

		config.Provider = scored.Model.Provider
		config.Model = scored.Model.Name
		config.Language = req.Language

		if err := provider.ValidateConfig(config); err != nil {
			slog.Debug("Skipping unconfigured provider", "provider", provider.Name(), "err", err)
			lastErr = err
			continue
		}

		attempts++
		slog.Info("Trying model", "model", scored.Model.Name, "provider", provider.Name(), "score", scored.Score)

		text, usage, err := provider.ExtractText(ctx, config, imagePath, imageBase64)
		if err != nil {
			slog.Warn("Model failed, falling back", "model", scored.Model.Name, "err", err)
			lastErr = err
			continue
		}

		return Routed{
			Model:    scored.Model.Name,
			Provider: provider.Name(),
			Score:    scored.Score,
			Text:     text,
			Usage:    usage,
			Attempts: attempts,
		}, nil
	}

	if lastErr != nil {
		return Routed{}, fmt.Errorf("all models failed: %w", lastErr)
	}
	return Routed{}, fmt.Errorf("no usable model: no providers registered for the model table")
}
