// Package us gathers daily bars for US-listed universe assets from the
// Alpaca market-data API.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"rotor/internal/domain"
	"rotor/internal/gather"
	"rotor/internal/store"
)

// Compile-time interface check.
var _ gather.Gatherer = (*DailyBarGatherer)(nil)

// DailyBarGatherer gathers daily bar data for the US-listed subset of the
// universe via the Alpaca market-data API.
type DailyBarGatherer struct {
	client    *marketdata.Client
	store     store.BarStore
	universe  []domain.Asset
	startDate string
	log       *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer configured with the given
// Alpaca credentials and target store. An empty dataURL selects the
// production endpoint.
func NewDailyBarGatherer(apiKey, apiSecret, dataURL string, s store.BarStore, universe []domain.Asset, startDate string) *DailyBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	var usAssets []domain.Asset
	for _, a := range universe {
		if a.Market == domain.MarketUS {
			usAssets = append(usAssets, a)
		}
	}

	return &DailyBarGatherer{
		client:    marketdata.NewClient(opts),
		store:     s,
		universe:  usAssets,
		startDate: startDate,
		log:       slog.Default().With("gatherer", "us-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "us-daily" }

// Run fetches daily bars for all US universe symbols in a single
// multi-symbol API call and writes them to the store.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	if len(g.universe) == 0 {
		g.log.Debug("no us symbols in universe")
		return nil
	}

	start, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.startDate, err)
	}

	symbols := make([]string, 0, len(g.universe))
	for _, a := range g.universe {
		symbols = append(symbols, strings.ToUpper(a.Symbol))
	}

	runStart := time.Now()
	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       time.Now().UTC(),
		Feed:      "iex",
	})
	if err != nil {
		return fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol: strings.ToUpper(symbol),
				Date:   ab.Timestamp.UTC().Truncate(24 * time.Hour),
				Open:   ab.Open,
				High:   ab.High,
				Low:    ab.Low,
				Close:  ab.Close,
				Volume: int64(ab.Volume),
			})
		}
	}

	if err := g.store.WriteBars(ctx, domain.MarketUS, bars); err != nil {
		return fmt.Errorf("writing bars: %w", err)
	}

	g.log.Info("complete",
		"symbols", len(symbols),
		"bars", len(bars),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}
