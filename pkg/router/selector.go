package router

import (
	"fmt"
	"sort"
)

// Capabilities scores one model across the scoring dimensions, each 0..1.
type Capabilities struct {
	Speed        float64 `json:"speed" yaml:"speed"`
	Cost         float64 `json:"cost" yaml:"cost"`
	Quality      float64 `json:"quality" yaml:"quality"`
	Multilingual float64 `json:"multilingual" yaml:"multilingual"`
	Handwriting  float64 `json:"handwriting" yaml:"handwriting"`
	Tables       float64 `json:"tables" yaml:"tables"`
}

// Model describes one hosted vision model and the provider that serves it.
type Model struct {
	Name         string       `json:"name" yaml:"name"`
	Provider     string       `json:"provider" yaml:"provider"`
	Capabilities Capabilities `json:"capabilities" yaml:"capabilities"`
}

// Weights control how much each scoring dimension matters.
type Weights struct {
	Speed        float64 `json:"speed" yaml:"speed"`
	Cost         float64 `json:"cost" yaml:"cost"`
	Quality      float64 `json:"quality" yaml:"quality"`
	Multilingual float64 `json:"multilingual" yaml:"multilingual"`
}

// DefaultWeights favor quality while still rewarding fast, cheap models.
var DefaultWeights = Weights{
	Speed:        0.2,
	Cost:         0.2,
	Quality:      0.4,
	Multilingual: 0.2,
}

// Requirements describe what the task needs beyond the base weights.
// Handwriting and tables add their capability columns into the score.
type Requirements struct {
	Handwriting bool   `json:"handwriting" yaml:"handwriting"`
	Tables      bool   `json:"tables" yaml:"tables"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
}

// DefaultModels is the built-in capability table for the hosted vision
// models the router knows how to reach.
func DefaultModels() []Model {
	return []Model{
		{
			Name:     "gemini-2.5-flash",
			Provider: "gemini",
			Capabilities: Capabilities{
				Speed: 0.95, Cost: 0.90, Quality: 0.80,
				Multilingual: 0.90, Handwriting: 0.75, Tables: 0.80,
			},
		},
		{
			Name:     "gemini-2.5-pro",
			Provider: "gemini",
			Capabilities: Capabilities{
				Speed: 0.60, Cost: 0.50, Quality: 0.95,
				Multilingual: 0.95, Handwriting: 0.90, Tables: 0.90,
			},
		},
		{
			Name:     "claude-sonnet-4-5",
			Provider: "claude",
			Capabilities: Capabilities{
				Speed: 0.70, Cost: 0.60, Quality: 0.92,
				Multilingual: 0.85, Handwriting: 0.88, Tables: 0.85,
			},
		},
		{
			Name:     "claude-haiku-4-5",
			Provider: "claude",
			Capabilities: Capabilities{
				Speed: 0.90, Cost: 0.85, Quality: 0.80,
				Multilingual: 0.80, Handwriting: 0.75, Tables: 0.70,
			},
		},
		{
			Name:     "mistral-ocr-latest",
			Provider: "mistral",
			Capabilities: Capabilities{
				Speed: 0.90, Cost: 0.85, Quality: 0.85,
				Multilingual: 0.80, Handwriting: 0.70, Tables: 0.95,
			},
		},
		{
			Name:     "qwen/qwen2.5-vl-72b-instruct",
			Provider: "openrouter",
			Capabilities: Capabilities{
				Speed: 0.65, Cost: 0.80, Quality: 0.88,
				Multilingual: 0.92, Handwriting: 0.85, Tables: 0.82,
			},
		},
	}
}

// ScoredModel pairs a model with its computed score.
type ScoredModel struct {
	Model Model   `json:"model" yaml:"model"`
	Score float64 `json:"score" yaml:"score"`
}

// Selector ranks models by weighted capability score.
type Selector struct {
	models  []Model
	weights Weights
}

// NewSelector creates a selector over the given model table. A nil or empty
// table falls back to DefaultModels; zero weights fall back to
// DefaultWeights.
func NewSelector(models []Model, weights Weights) *Selector {
	if len(models) == 0 {
		models = DefaultModels()
	}
	if weights == (Weights{}) {
		weights = DefaultWeights
	}
	return &Selector{models: models, weights: weights}
}

// Score computes the weighted capability sum for one model. Task
// requirements add their capability columns on top of the base sum.
func (s *Selector) Score(m Model, req Requirements) float64 {
	c := m.Capabilities
	score := s.weights.Speed*c.Speed +
		s.weights.Cost*c.Cost +
		s.weights.Quality*c.Quality +
		s.weights.Multilingual*c.Multilingual
	if req.Handwriting {
		score += c.Handwriting
	}
	if req.Tables {
		score += c.Tables
	}
	return score
}

// Rank returns all models ordered by descending score. Ties are broken by
// model name for stable output.
func (s *Selector) Rank(req Requirements) []ScoredModel {
	ranked := make([]ScoredModel, 0, len(s.models))
	for _, m := range s.models {
		ranked = append(ranked, ScoredModel{Model: m, Score: s.Score(m, req)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Model.Name < ranked[j].Model.Name
	})
	return ranked
}

// Select returns the highest-scoring model.
func (s *Selector) Select(req Requirements) (ScoredModel, error) {
	ranked := s.Rank(req)
	if len(ranked) == 0 {
		return ScoredModel{}, fmt.Errorf("no models configured")
	}
	return ranked[0], nil
}
