// Command rotor-optimize sweeps strategy parameter grids over the stored
// history and prints the candidates ranked by the chosen objective.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"rotor/internal/config"
	"rotor/internal/optimize"
	"rotor/internal/series"
	"rotor/internal/store"
	"rotor/internal/strategy"
	"rotor/internal/util"
)

func main() {
	objectiveFlag := flag.String("objective", "calmar", "ranking objective: calmar, sharpe, or return")
	strategyFlag := flag.String("strategy", "smart-rotation", "strategy family to sweep: momentum-rotation or smart-rotation")
	ms := flag.String("m", "1,2,3", "selection counts to try (smart-rotation)")
	ns := flag.String("n", "10,15,20,25,30", "lookback windows to try")
	ks := flag.String("k", "30,60", "correlation windows to try (smart-rotation)")
	corrs := flag.String("corr", "0.6,0.7,0.8", "correlation thresholds to try (smart-rotation)")
	top := flag.Int("top", 10, "number of best candidates to print")
	flag.Parse()

	cfgPath := "config/rotor.yaml"
	if p := os.Getenv("ROTOR_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	objective, err := optimize.ParseObjective(*objectiveFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start, err := cfg.StartDate()
	if err != nil {
		log.Fatalf("parsing backtest start date: %v", err)
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	h, err := series.LoadAligned(ctx, pstore, cfg.Assets(), start, time.Time{})
	if err != nil {
		log.Fatalf("loading history: %v", err)
	}

	var candidates []strategy.Strategy
	switch *strategyFlag {
	case "momentum-rotation":
		candidates, err = optimize.MomentumGrid(strategy.ScenariosFromConfig(cfg.Scenarios), parseInts(*ns))
	case "smart-rotation":
		candidates, err = optimize.SmartGrid(parseInts(*ms), parseInts(*ns), parseInts(*ks), parseFloats(*corrs))
	default:
		log.Fatalf("unknown strategy family %q", *strategyFlag)
	}
	if err != nil {
		log.Fatalf("building candidates: %v", err)
	}

	results, err := optimize.GridSearch(ctx, logger, h, candidates,
		cfg.Backtest.InitialCapital, cfg.Backtest.CommissionRate, objective)
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}

	n := min(*top, len(results))
	fmt.Printf("%-4s %-20s %-40s %10s %8s %8s %8s\n",
		"#", "strategy", "params", string(objective), "return", "sharpe", "maxDD")
	for i, r := range results[:n] {
		fmt.Printf("%-4d %-20s %-40s %10.3f %7.2f%% %8.2f %7.2f%%\n",
			i+1,
			r.Strategy.Name(),
			formatParams(r.Strategy.Params()),
			r.Score,
			r.Metrics.TotalReturn*100,
			r.Metrics.SharpeRatio,
			r.Metrics.MaxDrawdown*100,
		)
	}
}

func parseInts(s string) []int {
	var out []int
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			log.Fatalf("invalid integer %q", p)
		}
		out = append(out, v)
	}
	return out
}

func parseFloats(s string) []float64 {
	var out []float64
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			log.Fatalf("invalid number %q", p)
		}
		out = append(out, v)
	}
	return out
}

func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, params[k]))
	}
	return strings.Join(parts, " ")
}
