package fusion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ocrmux/ocrmux/pkg/engines"
)

// Strategy selects one answer from parallel engine results.
type Strategy string

const (
	// StrategyBest picks the single result with the highest confidence.
	StrategyBest Strategy = "best"
	// StrategyVote picks the text most engines agree on.
	StrategyVote Strategy = "vote"
	// StrategyWeighted scores each distinct text by engine priority weight
	// times confidence and picks the highest-scoring one.
	StrategyWeighted Strategy = "weighted"
)

// DefaultWeights holds the default per-engine priority weights used by the
// weighted strategy.
var DefaultWeights = map[string]float64{
	"paddleocr": 1.2,
	"tesseract": 1.0,
	"easyocr":   0.8,
}

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case StrategyBest:
		return StrategyBest, nil
	case StrategyVote:
		return StrategyVote, nil
	case StrategyWeighted:
		return StrategyWeighted, nil
	default:
		return "", fmt.Errorf("unknown fusion strategy: %s", name)
	}
}

// Fused is the single answer produced by a strategy.
type Fused struct {
	Text       string   `json:"text" yaml:"text"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Strategy   Strategy `json:"strategy" yaml:"strategy"`
	// Engines lists the engines whose results back the chosen text.
	Engines []string `json:"engines" yaml:"engines"`
}

// Fuse reduces the results to one answer using the given strategy. weights
// may be nil, in which case DefaultWeights applies; engines missing from the
// map get weight 1.0.
func Fuse(results []engines.Result, strategy Strategy, weights map[string]float64) (Fused, error) {
	if len(results) == 0 {
		return Fused{}, fmt.Errorf("no results to fuse")
	}
	if weights == nil {
		weights = DefaultWeights
	}

	if len(results) == 1 {
		return Fused{
			Text:       results[0].Text,
			Confidence: results[0].Confidence,
			Strategy:   strategy,
			Engines:    []string{results[0].Engine},
		}, nil
	}

	switch strategy {
	case StrategyBest:
		return fuseBest(results), nil
	case StrategyVote:
		return fuseVote(results), nil
	case StrategyWeighted:
		return fuseWeighted(results, weights), nil
	default:
		return Fused{}, fmt.Errorf("unknown fusion strategy: %s", strategy)
	}
}

func fuseBest(results []engines.Result) Fused {
	best := results[0]
	for _, r := range results[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}
	return Fused{
		Text:       best.Text,
		Confidence: best.Confidence,
		Strategy:   StrategyBest,
		Engines:    []string{best.Engine},
	}
}

// group collects all results that agree on one normalized text.
type group struct {
	text          string
	engines       []string
	votes         int
	confidenceSum float64
	weightedScore float64
	weightSum     float64
}

func groupByText(results []engines.Result, weights map[string]float64) []*group {
	byText := make(map[string]*group)
	var order []*group
	for _, r := range results {
		key := NormalizeText(r.Text)
		g, ok := byText[key]
		if !ok {
			g = &group{text: r.Text}
			byText[key] = g
			order = append(order, g)
		}
		w := engineWeight(weights, r.Engine)
		g.engines = append(g.engines, r.Engine)
		g.votes++
		g.confidenceSum += r.Confidence
		g.weightedScore += w * r.Confidence
		g.weightSum += w
	}
	return order
}

func fuseVote(results []engines.Result) Fused {
	groups := groupByText(results, nil)

	winner := groups[0]
	for _, g := range groups[1:] {
		// Ties go to the group with more total confidence
		if g.votes > winner.votes || (g.votes == winner.votes && g.confidenceSum > winner.confidenceSum) {
			winner = g
		}
	}

	return Fused{
		Text:       winner.text,
		Confidence: winner.confidenceSum / float64(winner.votes),
		Strategy:   StrategyVote,
		Engines:    winner.engines,
	}
}

func fuseWeighted(results []engines.Result, weights map[string]float64) Fused {
	groups := groupByText(results, weights)

	winner := groups[0]
	for _, g := range groups[1:] {
		if g.weightedScore > winner.weightedScore {
			winner = g
		}
	}

	confidence := 0.0
	if winner.weightSum > 0 {
		confidence = winner.weightedScore / winner.weightSum
	}

	return Fused{
		Text:       winner.text,
		Confidence: confidence,
		Strategy:   StrategyWeighted,
		Engines:    winner.engines,
	}
}

func engineWeight(weights map[string]float64, engine string) float64 {
	if weights == nil {
		weights = DefaultWeights
	}
	if w, ok := weights[strings.ToLower(engine)]; ok {
		return w
	}
	return 1.0
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText collapses whitespace and lowercases text so that engines
// with different spacing conventions still vote for the same answer.
func NormalizeText(text string) string {
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.ToLower(text)
}
