// Command rotor-signal computes the latest recommendation of the
// configured strategy, prints the target weights for the next trading
// day, and persists the signal. With -update it gathers the latest daily
// bars first, so the recommendation reflects today's close.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rotor/internal/config"
	"rotor/internal/gather"
	"rotor/internal/gather/cn"
	"rotor/internal/gather/us"
	"rotor/internal/series"
	"rotor/internal/store"
	"rotor/internal/strategy"
	"rotor/internal/util"
)

func main() {
	update := flag.Bool("update", false, "gather the latest daily bars before computing the signal")
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	if *update {
		gatherers := []gather.Gatherer{
			cn.NewDailyBarGatherer(
				cn.NewEastmoneyClient(""),
				pstore,
				cfg.Assets(),
				cfg.Gather.CNDaily.StartDate,
				cfg.Gather.CNDaily.RateLimitPerMin,
				cfg.Gather.CNDaily.MaxAttempts,
			),
		}
		if cfg.Alpaca.APIKey != "" {
			gatherers = append(gatherers, us.NewDailyBarGatherer(
				cfg.Alpaca.APIKey,
				cfg.Alpaca.APISecret,
				cfg.Alpaca.BaseURL,
				pstore,
				cfg.Assets(),
				cfg.Gather.USDaily.StartDate,
			))
		}
		for _, g := range gatherers {
			logger.Info("refreshing data", "gatherer", g.Name())
			if err := g.Run(ctx); err != nil {
				log.Fatalf("gatherer %s: %v", g.Name(), err)
			}
		}
	}

	h, err := series.LoadAligned(ctx, pstore, cfg.Assets(), time.Time{}, time.Time{})
	if err != nil {
		log.Fatalf("loading history: %v", err)
	}

	strat, err := strategy.FromConfig(cfg)
	if err != nil {
		log.Fatalf("building strategy: %v", err)
	}

	table, err := strat.Precompute(h)
	if err != nil {
		log.Fatalf("precomputing signals: %v", err)
	}

	sig, ok := table.Latest()
	if !ok {
		log.Fatalf("no signal yet: not enough history for the lookback window")
	}
	applyDate := util.NextTradingDay(sig.Date)

	fmt.Printf("strategy:   %s %v\n", strat.Name(), strat.Params())
	fmt.Printf("computed:   %s (close)\n", sig.Date.Format("2006-01-02"))
	fmt.Printf("apply at:   %s (open)\n", applyDate.Format("2006-01-02"))
	fmt.Printf("choice:     %s\n", sig.Choice)
	if cash := 1 - sig.Weights.Sum(); cash > 1e-9 {
		fmt.Printf("cash:       %.1f%%\n", cash*100)
	}
	for _, sym := range sig.Weights.Symbols() {
		fmt.Printf("  %-8s %.1f%%\n", sym, sig.Weights[sym]*100)
	}
	for _, sym := range sig.Stopped {
		fmt.Printf("  %-8s stopped out\n", sym)
	}

	sqlite, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer sqlite.Close()

	rec := &store.SignalRecord{
		Strategy:  strat.Name(),
		Date:      sig.Date,
		ApplyDate: applyDate,
		Choice:    sig.Choice,
		Weights:   sig.Weights,
		Stopped:   sig.Stopped,
	}
	if err := sqlite.SaveSignal(ctx, rec); err != nil {
		log.Fatalf("saving signal: %v", err)
	}
	logger.Info("signal saved", "id", rec.ID, "date", sig.Date.Format("2006-01-02"))
}
