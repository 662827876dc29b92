// Command rotor-update gathers daily bars for the configured universe and
// writes them to the Parquet store.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rotor/internal/config"
	"rotor/internal/gather"
	"rotor/internal/gather/cn"
	"rotor/internal/gather/us"
	"rotor/internal/store"
	"rotor/internal/util"
)

func main() {
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

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	universe := cfg.Assets()

	gatherers := []gather.Gatherer{
		cn.NewDailyBarGatherer(
			cn.NewEastmoneyClient(""),
			pstore,
			universe,
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
			universe,
			cfg.Gather.USDaily.StartDate,
		))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, g := range gatherers {
		logger.Info("starting gatherer", "name", g.Name())
		if err := g.Run(ctx); err != nil {
			log.Fatalf("gatherer %s: %v", g.Name(), err)
		}
	}
}
