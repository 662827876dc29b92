// Package report renders backtest results into charts.
package report

import (
	"fmt"

	"github.com/vicanso/go-charts/v2"

	"rotor/internal/backtest"
)

// NAVChart renders the NAV curve of a backtest run as a PNG, with the
// headline metrics in the subtitle.
func NAVChart(title string, records []backtest.Record, metrics *backtest.Metrics) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("report: no records to chart")
	}

	labels := make([]string, 0, len(records))
	values := make([]float64, 0, len(records))
	for _, rec := range records {
		labels = append(labels, rec.Date.Format("2006-01"))
		values = append(values, rec.NAV)
	}

	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	yMin := minVal - padding
	yMax := maxVal + padding

	fullTitle := title
	if metrics != nil {
		fullTitle += "\n" + fmt.Sprintf("Return: %.2f%% | Sharpe: %.2f | MaxDD: %.2f%% | Calmar: %.2f",
			metrics.TotalReturn*100, metrics.SharpeRatio, metrics.MaxDrawdown*100, metrics.CalmarRatio)
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(fullTitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: 8,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("report: render nav chart: %w", err)
	}
	return p.Bytes()
}

// DrawdownChart renders the running drawdown of a backtest run as a PNG.
func DrawdownChart(title string, records []backtest.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("report: no records to chart")
	}

	labels := make([]string, 0, len(records))
	values := make([]float64, 0, len(records))
	peak := records[0].NAV
	for _, rec := range records {
		if rec.NAV > peak {
			peak = rec.NAV
		}
		labels = append(labels, rec.Date.Format("2006-01"))
		values = append(values, (rec.NAV/peak-1)*100)
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title+" drawdown (%)"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: 8,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("report: render drawdown chart: %w", err)
	}
	return p.Bytes()
}
