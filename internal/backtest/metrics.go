package backtest

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

const (
	// tradingDaysPerYear annualizes daily statistics.
	tradingDaysPerYear = 252

	// riskFreeRate is the annual risk-free rate used for the Sharpe ratio.
	riskFreeRate = 0.02
)

// Metrics summarizes a backtest trajectory.
type Metrics struct {
	TotalReturn          float64 `json:"totalReturn"`
	AnnualizedReturn     float64 `json:"annualizedReturn"`
	AnnualizedVolatility float64 `json:"annualizedVolatility"`
	SharpeRatio          float64 `json:"sharpeRatio"`
	MaxDrawdown          float64 `json:"maxDrawdown"` // negative or zero
	CalmarRatio          float64 `json:"calmarRatio"`
}

// ComputeMetrics derives performance statistics from a run's NAV records.
// At least two records are required; with a flat or zero-drawdown curve
// the ratios that would divide by zero are reported as zero.
func ComputeMetrics(records []Record) (*Metrics, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("metrics: need at least 2 records, got %d", len(records))
	}

	first := records[0].NAV
	last := records[len(records)-1].NAV
	if first <= 0 {
		return nil, fmt.Errorf("metrics: starting NAV must be positive, got %v", first)
	}

	returns := make([]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		prev := records[i-1].NAV
		if prev <= 0 {
			return nil, fmt.Errorf("metrics: non-positive NAV %v at %s", prev, records[i-1].Date.Format("2006-01-02"))
		}
		returns = append(returns, records[i].NAV/prev-1)
	}

	m := &Metrics{TotalReturn: last/first - 1}

	years := float64(len(returns)) / tradingDaysPerYear
	m.AnnualizedReturn = math.Pow(1+m.TotalReturn, 1/years) - 1

	if sd, err := stats.StandardDeviationSample(returns); err == nil {
		m.AnnualizedVolatility = sd * math.Sqrt(tradingDaysPerYear)
	}
	if m.AnnualizedVolatility > 0 {
		m.SharpeRatio = (m.AnnualizedReturn - riskFreeRate) / m.AnnualizedVolatility
	}

	m.MaxDrawdown = maxDrawdown(records)
	if m.MaxDrawdown < 0 {
		m.CalmarRatio = m.AnnualizedReturn / math.Abs(m.MaxDrawdown)
	}

	return m, nil
}

// maxDrawdown returns the deepest peak-to-trough decline of the NAV
// curve as a non-positive fraction.
func maxDrawdown(records []Record) float64 {
	peak := records[0].NAV
	var worst float64
	for _, rec := range records {
		if rec.NAV > peak {
			peak = rec.NAV
		}
		if dd := rec.NAV/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}
