package cn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rotor/internal/domain"
	"rotor/internal/store"
)

func TestSecID(t *testing.T) {
	cases := map[string]string{
		"510300": "1.510300", // Shanghai ETF
		"588000": "1.588000",
		"601318": "1.601318", // Shanghai stock
		"159915": "0.159915", // Shenzhen ETF
		"000001": "0.000001",
	}
	for symbol, want := range cases {
		if got := SecID(symbol); got != want {
			t.Errorf("SecID(%s) = %s, want %s", symbol, got, want)
		}
	}
}

func TestParseKline(t *testing.T) {
	b, err := parseKline("510300", "2024-06-03,3.50,3.55,3.58,3.48,1234567")
	if err != nil {
		t.Fatalf("parseKline: %v", err)
	}
	if b.Symbol != "510300" {
		t.Errorf("symbol = %q", b.Symbol)
	}
	if !b.Date.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", b.Date)
	}
	if b.Open != 3.50 || b.Close != 3.55 || b.High != 3.58 || b.Low != 3.48 {
		t.Errorf("ohlc = %v %v %v %v", b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume != 1234567 {
		t.Errorf("volume = %d", b.Volume)
	}

	if _, err := parseKline("510300", "2024-06-03,3.50"); err == nil {
		t.Error("expected error for truncated kline")
	}
	if _, err := parseKline("510300", "bad-date,3.50,3.55,3.58,3.48,1"); err == nil {
		t.Error("expected error for bad date")
	}
}

const klineJSON = `{
  "data": {
    "code": "510300",
    "name": "CSI 300 ETF",
    "klines": [
      "2024-06-03,3.50,3.55,3.58,3.48,1234567",
      "2024-06-04,3.55,3.52,3.56,3.50,987654"
    ]
  }
}`

func TestQueryDailyBars(t *testing.T) {
	var gotSecID, gotKlt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecID = r.URL.Query().Get("secid")
		gotKlt = r.URL.Query().Get("klt")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(klineJSON))
	}))
	defer srv.Close()

	client := NewEastmoneyClient(srv.URL)
	bars, err := client.QueryDailyBars(context.Background(),
		"510300",
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("QueryDailyBars: %v", err)
	}

	if gotSecID != "1.510300" {
		t.Errorf("secid = %q, want 1.510300", gotSecID)
	}
	if gotKlt != "101" {
		t.Errorf("klt = %q, want 101 (daily)", gotKlt)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	if bars[0].Close != 3.55 || bars[1].Close != 3.52 {
		t.Errorf("closes = %v %v", bars[0].Close, bars[1].Close)
	}
}

func TestQueryDailyBarsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data": null}`))
	}))
	defer srv.Close()

	client := NewEastmoneyClient(srv.URL)
	_, err := client.QueryDailyBars(context.Background(), "999999", time.Now(), time.Now())
	if err == nil {
		t.Error("expected error for null data")
	}
}

func TestGathererRunWritesBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(klineJSON))
	}))
	defer srv.Close()

	pstore := store.NewParquetStore(t.TempDir())
	universe := []domain.Asset{
		{Symbol: "510300", Name: "CSI 300 ETF", Category: domain.CategoryEquity, Market: domain.MarketCN},
		{Symbol: "SPY", Name: "S&P 500", Category: domain.CategoryEquity, Market: domain.MarketUS},
	}

	g := NewDailyBarGatherer(NewEastmoneyClient(srv.URL), pstore, universe, "2024-06-01", 600, 1)
	if g.Name() != "cn-daily" {
		t.Errorf("name = %q", g.Name())
	}

	if err := g.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	bars, err := pstore.ReadBars(context.Background(), domain.MarketCN, "510300",
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("stored bars = %d, want 2", len(bars))
	}

	// The US asset is outside this gatherer's scope.
	if syms, _ := pstore.ListSymbols(context.Background(), domain.MarketUS); len(syms) != 0 {
		t.Errorf("us symbols = %v, want none", syms)
	}
}
