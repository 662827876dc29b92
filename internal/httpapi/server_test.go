package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rotor/internal/backtest"
	"rotor/internal/domain"
	"rotor/internal/strategy"
	"rotor/internal/util"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	universe := []domain.Asset{
		{Symbol: "510300", Name: "CSI 300 ETF", Category: domain.CategoryEquity, Market: domain.MarketCN},
		{Symbol: "518880", Name: "Gold ETF", Category: domain.CategoryGold, Market: domain.MarketCN},
	}

	dates := []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2)}
	table := strategy.NewTable(dates)
	table.Set(2, &strategy.Signal{
		Date:    dates[2],
		Weights: strategy.Weights{"510300": 1.0},
		Choice:  "growth",
	})

	result := &backtest.Result{
		Records: []backtest.Record{
			{Date: dates[0], NAV: 1000},
			{Date: dates[1], NAV: 1010, Turnover: 1000, Commission: 0.3},
			{Date: dates[2], NAV: 1025},
		},
	}
	metrics, err := backtest.ComputeMetrics(result.Records)
	if err != nil {
		t.Fatal(err)
	}

	srv := NewServer(universe, "momentum-rotation", table, result, metrics, nil, nil, util.NewLogger("error"))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHandleAssets(t *testing.T) {
	ts := testServer(t)

	var assets []AssetResponse
	getJSON(t, ts.URL+"/api/assets", &assets)
	if len(assets) != 2 {
		t.Fatalf("assets = %d, want 2", len(assets))
	}
	if assets[0].Symbol != "510300" || assets[0].Market != "cn" {
		t.Errorf("assets[0] = %+v", assets[0])
	}
}

func TestHandleNav(t *testing.T) {
	ts := testServer(t)

	var nav []NavPoint
	getJSON(t, ts.URL+"/api/nav", &nav)
	if len(nav) != 3 {
		t.Fatalf("nav points = %d, want 3", len(nav))
	}
	if nav[0].Date != "2024-06-03" || nav[0].NAV != 1000 {
		t.Errorf("nav[0] = %+v", nav[0])
	}
	if nav[1].Turnover != 1000 || nav[1].Commission != 0.3 {
		t.Errorf("nav[1] = %+v", nav[1])
	}
}

func TestHandleMetrics(t *testing.T) {
	ts := testServer(t)

	var m map[string]float64
	getJSON(t, ts.URL+"/api/metrics", &m)
	if m["totalReturn"] == 0 {
		t.Errorf("metrics = %v, want nonzero totalReturn", m)
	}
}

func TestHandleSignal(t *testing.T) {
	ts := testServer(t)

	var sig SignalResponse
	getJSON(t, ts.URL+"/api/signal", &sig)
	if sig.Strategy != "momentum-rotation" || sig.Choice != "growth" {
		t.Errorf("signal = %+v", sig)
	}
	if sig.Date != "2024-06-05" {
		t.Errorf("date = %q", sig.Date)
	}
	// 2024-06-05 is a Wednesday; the weights apply the next weekday.
	if sig.ApplyDate != "2024-06-06" {
		t.Errorf("apply date = %q", sig.ApplyDate)
	}
	if sig.Weights["510300"] != 1.0 {
		t.Errorf("weights = %v", sig.Weights)
	}
}

func TestHandleSignalsWithoutStore(t *testing.T) {
	ts := testServer(t)

	var signals []SignalResponse
	getJSON(t, ts.URL+"/api/signals", &signals)
	if len(signals) != 0 {
		t.Errorf("signals = %+v, want empty without a store", signals)
	}
}

func TestHandleChart(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/chart")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q, want image/png", ct)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := testServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/nav", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
