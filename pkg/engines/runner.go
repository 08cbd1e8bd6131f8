package engines

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// EngineError records a single engine's failure within a run.
type EngineError struct {
	Engine string `json:"engine" yaml:"engine"`
	Error  string `json:"error" yaml:"error"`
}

// RunReport collects everything a fan-out run produced.
type RunReport struct {
	Results []Result      `json:"results" yaml:"results"`
	Errors  []EngineError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Runner fans a request out to all configured engines concurrently. A failed
// engine never cancels its siblings; the run succeeds as long as at least one
// engine returns a result.
type Runner struct {
	engines []Engine
	timeout time.Duration
}

// NewRunner creates a runner over the given engines. timeout bounds each
// engine call independently; zero means no per-engine limit.
func NewRunner(engines []Engine, timeout time.Duration) *Runner {
	return &Runner{
		engines: engines,
		timeout: timeout,
	}
}

// Engines returns the names of the configured engines.
func (r *Runner) Engines() []string {
	names := make([]string, 0, len(r.engines))
	for _, e := range r.engines {
		names = append(names, e.Name())
	}
	return names
}

// Run dispatches the request to every engine and gathers the results.
func (r *Runner) Run(ctx context.Context, req Request) (RunReport, error) {
	if len(r.engines) == 0 {
		return RunReport{}, fmt.Errorf("no engines configured")
	}

	results := make([]*Result, len(r.engines))
	errs := make([]error, len(r.engines))

	g, ctx := errgroup.WithContext(ctx)
	for i, engine := range r.engines {
		g.Go(func() error {
			engineCtx := ctx
			if r.timeout > 0 {
				var cancel context.CancelFunc
				engineCtx, cancel = context.WithTimeout(ctx, r.timeout)
				defer cancel()
			}

			res, err := engine.Recognize(engineCtx, req)
			if err != nil {
				// Record the failure but keep the siblings running
				errs[i] = err
				return nil
			}
			results[i] = &res
			return nil
		})
	}

	// Goroutines always return nil; Wait only synchronizes
	if err := g.Wait(); err != nil {
		return RunReport{}, err
	}

	var report RunReport
	for i, engine := range r.engines {
		if errs[i] != nil {
			slog.Warn("Engine failed", "engine", engine.Name(), "err", errs[i])
			report.Errors = append(report.Errors, EngineError{Engine: engine.Name(), Error: errs[i].Error()})
			continue
		}
		if results[i] != nil {
			report.Results = append(report.Results, *results[i])
		}
	}

	if len(report.Results) == 0 {
		return report, fmt.Errorf("all engines failed")
	}

	return report, nil
}
