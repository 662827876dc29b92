// Command rotor-server backtests the configured strategy at startup and
// serves the results, signals, and charts over HTTP.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rotor/internal/backtest"
	"rotor/internal/config"
	"rotor/internal/httpapi"
	"rotor/internal/series"
	"rotor/internal/store"
	"rotor/internal/strategy"
	"rotor/internal/util"
)

func main() {
	cfgPath := "config/rotor.yaml"
	if p := os.Getenv("ROTOR_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

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

	strat, err := strategy.FromConfig(cfg)
	if err != nil {
		log.Fatalf("building strategy: %v", err)
	}

	table, err := strat.Precompute(h)
	if err != nil {
		log.Fatalf("precomputing signals: %v", err)
	}

	engine := backtest.NewEngine(logger)
	result, err := engine.Run(table, h, cfg.Backtest.InitialCapital, cfg.Backtest.CommissionRate)
	if err != nil {
		log.Fatalf("running backtest: %v", err)
	}
	metrics, err := backtest.ComputeMetrics(result.Records)
	if err != nil {
		log.Fatalf("computing metrics: %v", err)
	}

	sqlite, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer sqlite.Close()

	srv := httpapi.NewServer(cfg.Assets(), strat.Name(), table, result, metrics, sqlite, sqlite, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("rotor server listening", "addr", httpServer.Addr, "strategy", strat.Name())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down rotor server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
