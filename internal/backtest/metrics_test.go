package backtest

import (
	"math"
	"testing"
	"time"
)

func navRecords(navs ...float64) []Record {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Record, 0, len(navs))
	for i, n := range navs {
		out = append(out, Record{Date: start.AddDate(0, 0, i), NAV: n})
	}
	return out
}

func TestComputeMetricsValidation(t *testing.T) {
	if _, err := ComputeMetrics(nil); err == nil {
		t.Error("expected error for no records")
	}
	if _, err := ComputeMetrics(navRecords(1000)); err == nil {
		t.Error("expected error for a single record")
	}
	if _, err := ComputeMetrics(navRecords(0, 1000)); err == nil {
		t.Error("expected error for non-positive NAV")
	}
}

func TestComputeMetricsKnownCurve(t *testing.T) {
	// 1000 -> 1100 -> 990 -> 1210: +21% total, worst drawdown -10%.
	m, err := ComputeMetrics(navRecords(1000, 1100, 990, 1210))
	if err != nil {
		t.Fatalf("ComputeMetrics: %v", err)
	}

	if math.Abs(m.TotalReturn-0.21) > 1e-9 {
		t.Errorf("total return = %v, want 0.21", m.TotalReturn)
	}
	if math.Abs(m.MaxDrawdown-(-0.10)) > 1e-9 {
		t.Errorf("max drawdown = %v, want -0.10", m.MaxDrawdown)
	}

	// 3 daily returns annualized over 252 trading days.
	wantAnn := math.Pow(1.21, 252.0/3.0) - 1
	if math.Abs(m.AnnualizedReturn-wantAnn) > 1e-9 {
		t.Errorf("annualized return = %v, want %v", m.AnnualizedReturn, wantAnn)
	}
	wantCalmar := m.AnnualizedReturn / 0.10
	if math.Abs(m.CalmarRatio-wantCalmar) > 1e-9 {
		t.Errorf("calmar = %v, want %v", m.CalmarRatio, wantCalmar)
	}
	if m.AnnualizedVolatility <= 0 {
		t.Errorf("volatility = %v, want > 0", m.AnnualizedVolatility)
	}
	wantSharpe := (m.AnnualizedReturn - 0.02) / m.AnnualizedVolatility
	if math.Abs(m.SharpeRatio-wantSharpe) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", m.SharpeRatio, wantSharpe)
	}
}

func TestComputeMetricsFlatCurve(t *testing.T) {
	m, err := ComputeMetrics(navRecords(1000, 1000, 1000, 1000))
	if err != nil {
		t.Fatalf("ComputeMetrics: %v", err)
	}
	if m.TotalReturn != 0 || m.AnnualizedReturn != 0 {
		t.Errorf("flat curve returns = %v/%v, want 0", m.TotalReturn, m.AnnualizedReturn)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("flat curve drawdown = %v, want 0", m.MaxDrawdown)
	}
	// Zero volatility and zero drawdown leave the ratios at zero rather
	// than dividing by zero.
	if m.SharpeRatio != 0 || m.CalmarRatio != 0 {
		t.Errorf("ratios = %v/%v, want 0", m.SharpeRatio, m.CalmarRatio)
	}
}

func TestMaxDrawdownTracksNewPeaks(t *testing.T) {
	m, err := ComputeMetrics(navRecords(1000, 1200, 900, 1300, 1040))
	if err != nil {
		t.Fatal(err)
	}
	// Deepest decline is 1200 -> 900 (-25%), not the later 1300 -> 1040 (-20%).
	if math.Abs(m.MaxDrawdown-(-0.25)) > 1e-9 {
		t.Errorf("max drawdown = %v, want -0.25", m.MaxDrawdown)
	}
}
