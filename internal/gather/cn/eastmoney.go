// Package cn gathers daily bars for China-listed ETFs from the Eastmoney
// public kline API.
package cn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rotor/internal/domain"
	"rotor/internal/gather"
	"rotor/internal/store"
	"rotor/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*DailyBarGatherer)(nil)

// defaultBaseURL is the Eastmoney history kline endpoint.
const defaultBaseURL = "https://push2his.eastmoney.com"

// ---------------------------------------------------------------------------
// EastmoneyClient is an HTTP client for the Eastmoney kline API.
// ---------------------------------------------------------------------------

// EastmoneyClient retrieves daily kline data for China-listed funds from
// the public Eastmoney quote service.
type EastmoneyClient struct {
	baseURL string
	httpc   *http.Client
}

// NewEastmoneyClient creates an EastmoneyClient. An empty baseURL selects
// the production endpoint.
func NewEastmoneyClient(baseURL string) *EastmoneyClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &EastmoneyClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// klineResponse mirrors the JSON envelope of the kline endpoint. Each kline
// entry is a comma-joined string: date,open,close,high,low,volume,...
type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// QueryDailyBars retrieves forward-adjusted daily bars for the given fund
// symbol between start and end (inclusive).
func (c *EastmoneyClient) QueryDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	q := url.Values{}
	q.Set("secid", SecID(symbol))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56")
	q.Set("klt", "101") // daily bars
	q.Set("fqt", "1")   // forward-adjusted prices
	q.Set("beg", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))

	u := c.baseURL + "/api/qt/stock/kline/get?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eastmoney: query %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eastmoney: query %s: status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var kr klineResponse
	if err := json.Unmarshal(body, &kr); err != nil {
		return nil, fmt.Errorf("eastmoney: decode %s: %w", symbol, err)
	}
	if kr.Data == nil {
		return nil, fmt.Errorf("eastmoney: no data for %s", symbol)
	}

	bars := make([]domain.Bar, 0, len(kr.Data.Klines))
	for _, line := range kr.Data.Klines {
		b, err := parseKline(symbol, line)
		if err != nil {
			return nil, fmt.Errorf("eastmoney: %s: %w", symbol, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// SecID maps a fund code to Eastmoney's market-prefixed security ID.
// Shanghai-listed codes (5xx ETFs, 6xx stocks) take prefix 1, Shenzhen
// codes take prefix 0.
func SecID(symbol string) string {
	if strings.HasPrefix(symbol, "5") || strings.HasPrefix(symbol, "6") {
		return "1." + symbol
	}
	return "0." + symbol
}

// parseKline splits one kline entry. Field order matches the fields2
// request parameter: date, open, close, high, low, volume.
func parseKline(symbol, line string) (domain.Bar, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return domain.Bar{}, fmt.Errorf("malformed kline %q", line)
	}

	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return domain.Bar{}, fmt.Errorf("kline date %q: %w", parts[0], err)
	}

	var vals [4]float64
	for i, p := range parts[1:5] {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("kline field %q: %w", p, err)
		}
		vals[i] = v
	}
	vol, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("kline volume %q: %w", parts[5], err)
	}

	return domain.Bar{
		Symbol: symbol,
		Date:   date.UTC(),
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: vol,
	}, nil
}

// ---------------------------------------------------------------------------
// DailyBarGatherer collects daily bars for the CN-listed subset of the
// universe.
// ---------------------------------------------------------------------------

// DailyBarGatherer fetches daily bars for the configured CN universe via an
// EastmoneyClient and persists them through a BarStore. Re-running a pass
// re-fetches from the last stored date, so interrupted runs resume.
type DailyBarGatherer struct {
	client      *EastmoneyClient
	store       store.BarStore
	universe    []domain.Asset
	startDate   string
	limiter     *util.RateLimiter
	maxAttempts int
	log         *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer for the CN-listed subset
// of the universe.
func NewDailyBarGatherer(client *EastmoneyClient, s store.BarStore, universe []domain.Asset, startDate string, rateLimitPerMin, maxAttempts int) *DailyBarGatherer {
	var cnAssets []domain.Asset
	for _, a := range universe {
		if a.Market == domain.MarketCN {
			cnAssets = append(cnAssets, a)
		}
	}
	return &DailyBarGatherer{
		client:      client,
		store:       s,
		universe:    cnAssets,
		startDate:   startDate,
		limiter:     util.NewRateLimiter(rateLimitPerMin),
		maxAttempts: maxAttempts,
		log:         slog.Default().With("gatherer", "cn-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "cn-daily" }

// Run fetches daily bars for every CN universe asset from its last stored
// date (or the configured start date) through today and writes them to the
// store.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	start, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.startDate, err)
	}
	end := time.Now().UTC()

	runStart := time.Now()
	for _, asset := range g.universe {
		if err := ctx.Err(); err != nil {
			return err
		}

		from, err := g.resumeFrom(ctx, asset.Symbol, start)
		if err != nil {
			return err
		}
		if from.After(end) {
			g.log.Debug("up to date", "symbol", asset.Symbol)
			continue
		}

		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		var bars []domain.Bar
		err = util.Retry(ctx, g.maxAttempts, time.Second, func() error {
			var qerr error
			bars, qerr = g.client.QueryDailyBars(ctx, asset.Symbol, from, end)
			return qerr
		})
		if err != nil {
			return fmt.Errorf("gathering %s: %w", asset.Symbol, err)
		}

		if err := g.store.WriteBars(ctx, domain.MarketCN, bars); err != nil {
			return fmt.Errorf("writing %s: %w", asset.Symbol, err)
		}
		g.log.Info("symbol done", "symbol", asset.Symbol, "bars", len(bars), "from", from.Format("2006-01-02"))
	}

	g.log.Info("complete",
		"symbols", len(g.universe),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// resumeFrom returns the date to fetch from: the day after the last stored
// bar, or the configured start when nothing is stored yet. The last stored
// date itself is re-fetched so a partially written day gets replaced.
func (g *DailyBarGatherer) resumeFrom(ctx context.Context, symbol string, start time.Time) (time.Time, error) {
	stored, err := g.store.ReadBars(ctx, domain.MarketCN, symbol, start, time.Now().UTC())
	if err != nil {
		return time.Time{}, fmt.Errorf("reading stored bars for %s: %w", symbol, err)
	}
	if len(stored) == 0 {
		return start, nil
	}
	return stored[len(stored)-1].Date, nil
}
