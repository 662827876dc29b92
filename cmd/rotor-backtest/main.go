// Command rotor-backtest replays the configured strategy over the stored
// history, prints the performance summary, persists the run, and writes
// the NAV chart.
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

	"rotor/internal/backtest"
	"rotor/internal/config"
	"rotor/internal/report"
	"rotor/internal/series"
	"rotor/internal/store"
	"rotor/internal/strategy"
	"rotor/internal/util"
)

func main() {
	chartPath := flag.String("chart", "", "write the NAV chart PNG to this path")
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

	fmt.Printf("strategy:          %s %v\n", strat.Name(), strat.Params())
	fmt.Printf("period:            %s .. %s (%d sessions)\n",
		result.Records[0].Date.Format("2006-01-02"),
		result.Records[len(result.Records)-1].Date.Format("2006-01-02"),
		len(result.Records))
	fmt.Printf("final NAV:         %.2f\n", result.FinalNAV())
	fmt.Printf("total return:      %.2f%%\n", metrics.TotalReturn*100)
	fmt.Printf("annualized return: %.2f%%\n", metrics.AnnualizedReturn*100)
	fmt.Printf("annualized vol:    %.2f%%\n", metrics.AnnualizedVolatility*100)
	fmt.Printf("sharpe ratio:      %.2f\n", metrics.SharpeRatio)
	fmt.Printf("max drawdown:      %.2f%%\n", metrics.MaxDrawdown*100)
	fmt.Printf("calmar ratio:      %.2f\n", metrics.CalmarRatio)
	fmt.Printf("trades:            %d (commission %.2f)\n", len(result.Trades), result.TotalCommission())

	sqlite, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer sqlite.Close()

	rec := &store.RunRecord{
		Strategy:         strat.Name(),
		Params:           strat.Params(),
		StartDate:        result.Records[0].Date,
		EndDate:          result.Records[len(result.Records)-1].Date,
		InitialCapital:   cfg.Backtest.InitialCapital,
		FinalNAV:         result.FinalNAV(),
		TotalReturn:      metrics.TotalReturn,
		AnnualizedReturn: metrics.AnnualizedReturn,
		SharpeRatio:      metrics.SharpeRatio,
		MaxDrawdown:      metrics.MaxDrawdown,
		CalmarRatio:      metrics.CalmarRatio,
	}
	if err := sqlite.SaveRun(ctx, rec); err != nil {
		log.Fatalf("saving run: %v", err)
	}
	logger.Info("run saved", "id", rec.ID)

	if *chartPath != "" {
		png, err := report.NAVChart(strat.Name(), result.Records, metrics)
		if err != nil {
			log.Fatalf("rendering chart: %v", err)
		}
		if err := os.WriteFile(*chartPath, png, 0o644); err != nil {
			log.Fatalf("writing chart: %v", err)
		}
		logger.Info("chart written", "path", *chartPath)
	}
}
