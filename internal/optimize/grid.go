// Package optimize runs parameter sweeps over rotation strategies and
// ranks the resulting backtests.
package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"rotor/internal/backtest"
	"rotor/internal/series"
	"rotor/internal/strategy"
)

// Objective names the metric a sweep ranks by.
type Objective string

const (
	ObjectiveCalmar Objective = "calmar"
	ObjectiveSharpe Objective = "sharpe"
	ObjectiveReturn Objective = "return"
)

// ParseObjective validates an objective name from config or flags.
func ParseObjective(s string) (Objective, error) {
	switch Objective(s) {
	case ObjectiveCalmar, ObjectiveSharpe, ObjectiveReturn:
		return Objective(s), nil
	}
	return "", fmt.Errorf("optimize: unknown objective %q", s)
}

// RunResult pairs one candidate with its backtest outcome.
type RunResult struct {
	Strategy strategy.Strategy
	Metrics  *backtest.Metrics
	Result   *backtest.Result
	Score    float64
}

// GridSearch backtests every candidate against the same history and
// returns the results sorted by the objective, best first. Candidates
// run in parallel; precomputed tables and run accumulators are private
// to each goroutine and the history is read-only.
func GridSearch(ctx context.Context, log *slog.Logger, h *series.Aligned, candidates []strategy.Strategy, initialCapital, commissionRate float64, objective Objective) ([]RunResult, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("optimize: no candidates")
	}

	engine := backtest.NewEngine(log)
	results := make([]RunResult, len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, cand := range candidates {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			table, err := cand.Precompute(h)
			if err != nil {
				return fmt.Errorf("optimize: precompute %s: %w", cand.Name(), err)
			}
			res, err := engine.Run(table, h, initialCapital, commissionRate)
			if err != nil {
				return fmt.Errorf("optimize: run %s: %w", cand.Name(), err)
			}
			metrics, err := backtest.ComputeMetrics(res.Records)
			if err != nil {
				return fmt.Errorf("optimize: metrics %s: %w", cand.Name(), err)
			}
			results[i] = RunResult{
				Strategy: cand,
				Metrics:  metrics,
				Result:   res,
				Score:    score(metrics, objective),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stable order for equal scores: keep candidate order, which follows
	// the sweep's parameter enumeration.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	best := results[0]
	log.Info("sweep complete",
		"candidates", len(candidates),
		"objective", string(objective),
		"best", best.Strategy.Name(),
		"bestParams", best.Strategy.Params(),
		"bestScore", best.Score,
	)
	return results, nil
}

func score(m *backtest.Metrics, objective Objective) float64 {
	switch objective {
	case ObjectiveSharpe:
		return m.SharpeRatio
	case ObjectiveReturn:
		return m.AnnualizedReturn
	default:
		return m.CalmarRatio
	}
}

// SmartGrid enumerates SmartRotation candidates over the cross product
// of the given parameter lists.
func SmartGrid(ms, ns, ks []int, corrThresholds []float64) ([]strategy.Strategy, error) {
	var out []strategy.Strategy
	for _, m := range ms {
		for _, n := range ns {
			for _, k := range ks {
				for _, ct := range corrThresholds {
					s, err := strategy.NewSmartRotation(m, n, k, ct)
					if err != nil {
						return nil, err
					}
					out = append(out, s)
				}
			}
		}
	}
	return out, nil
}

// MomentumGrid enumerates MomentumRotation candidates over the given
// lookback windows, all sharing one scenario set.
func MomentumGrid(scenarios []strategy.Scenario, ns []int) ([]strategy.Strategy, error) {
	var out []strategy.Strategy
	for _, n := range ns {
		s, err := strategy.NewMomentumRotation(scenarios, n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
