package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"rotor/internal/series"
)

// Compile-time interface checks.
var _ Strategy = (*SmartRotation)(nil)
var _ Strategy = (*StopLossRotation)(nil)

// SmartRotation selects up to m assets from the whole universe by
// risk-adjusted momentum (n-day trailing return divided by the standard
// deviation of daily returns over the same window), filtering the greedy
// selection so that no two chosen assets have a trailing k-day return
// correlation above corrThreshold. Selected assets are equal-weighted; when
// fewer than m survive the filter the remainder stays in cash.
type SmartRotation struct {
	m             int
	n             int
	k             int
	corrThreshold float64
}

// NewSmartRotation validates the parameters and creates a SmartRotation.
// n must be at least 2 because the volatility is a sample statistic over
// the window's daily returns.
func NewSmartRotation(m, n, k int, corrThreshold float64) (*SmartRotation, error) {
	if m <= 0 {
		return nil, fmt.Errorf("smart-rotation: m must be positive, got %d", m)
	}
	if n < 2 {
		return nil, fmt.Errorf("smart-rotation: n must be at least 2, got %d", n)
	}
	if err := validateWindow("smart-rotation", "k", k); err != nil {
		return nil, err
	}
	if corrThreshold < 0 || corrThreshold > 1 {
		return nil, fmt.Errorf("smart-rotation: correlation threshold must be in [0,1], got %v", corrThreshold)
	}
	return &SmartRotation{m: m, n: n, k: k, corrThreshold: corrThreshold}, nil
}

// Name returns "smart-rotation".
func (s *SmartRotation) Name() string { return "smart-rotation" }

// Params returns the selection and window parameters.
func (s *SmartRotation) Params() map[string]float64 {
	return map[string]float64{
		"m":              float64(s.m),
		"n":              float64(s.n),
		"k":              float64(s.k),
		"corr_threshold": s.corrThreshold,
	}
}

// Precompute ranks the universe by risk-adjusted momentum on every date
// and emits the equal-weighted selection.
func (s *SmartRotation) Precompute(h *series.Aligned) (*Table, error) {
	table := NewTable(h.Dates())
	for t := s.n; t < h.Len(); t++ {
		ranked := s.rank(h, t)
		if len(ranked) == 0 {
			continue
		}
		selected := s.selectDiversified(h, t, ranked, nil)
		table.Set(t, s.signal(h, t, selected, nil))
	}
	return table, nil
}

// assetFactor pairs a symbol with its risk-adjusted momentum score.
type assetFactor struct {
	symbol string
	factor float64
}

// rank computes the factor for every asset with sufficient history at
// index t and returns them sorted by factor descending. Assets whose
// window volatility is zero cannot be risk-adjusted and are excluded.
func (s *SmartRotation) rank(h *series.Aligned, t int) []assetFactor {
	var ranked []assetFactor
	for _, sym := range h.Symbols() {
		if !h.HasWindow(sym, t, s.n) {
			continue
		}
		base, okBase := h.Close(sym, t-s.n)
		cur, okCur := h.Close(sym, t)
		if !okBase || !okCur || base == 0 {
			continue
		}
		ret := cur/base - 1

		vol, err := stats.StandardDeviationSample(h.Returns(sym, t-s.n, t))
		if err != nil || vol == 0 || math.IsNaN(vol) {
			continue
		}
		ranked = append(ranked, assetFactor{symbol: sym, factor: ret / vol})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].factor != ranked[j].factor {
			return ranked[i].factor > ranked[j].factor
		}
		return ranked[i].symbol < ranked[j].symbol
	})
	return ranked
}

// selectDiversified walks the ranked list and greedily picks up to m
// assets, skipping candidates too correlated with anything already picked
// and anything in the barred set.
func (s *SmartRotation) selectDiversified(h *series.Aligned, t int, ranked []assetFactor, barred map[string]struct{}) []string {
	var selected []string
	for _, cand := range ranked {
		if len(selected) >= s.m {
			break
		}
		if _, stop := barred[cand.symbol]; stop {
			continue
		}
		ok := true
		for _, held := range selected {
			if s.correlation(h, cand.symbol, held, t) > s.corrThreshold {
				ok = false
				break
			}
		}
		if ok {
			selected = append(selected, cand.symbol)
		}
	}
	return selected
}

// correlation computes the Pearson correlation of two assets' daily
// returns over the trailing k-day window ending at t. The window shrinks
// to the overlap of both assets' real history; with fewer than two
// overlapping points the pair is treated as uncorrelated.
func (s *SmartRotation) correlation(h *series.Aligned, a, b string, t int) float64 {
	from := t - s.k
	if fa := h.FirstIndex(a); fa > from {
		from = fa
	}
	if fb := h.FirstIndex(b); fb > from {
		from = fb
	}
	ra := h.Returns(a, from, t)
	rb := h.Returns(b, from, t)
	if len(ra) < 2 || len(ra) != len(rb) {
		return 0
	}
	c, err := stats.Correlation(ra, rb)
	if err != nil || math.IsNaN(c) {
		return 0
	}
	return c
}

// signal builds the equal-weighted Signal for a selection. An empty
// selection is a valid all-cash signal.
func (s *SmartRotation) signal(h *series.Aligned, t int, selected, stopped []string) *Signal {
	w := make(Weights, len(selected))
	if len(selected) > 0 {
		each := 1.0 / float64(len(selected))
		for _, sym := range selected {
			w[sym] = each
		}
	}
	sort.Strings(selected)
	return &Signal{
		Date:    h.Date(t),
		Weights: w,
		Choice:  strings.Join(selected, "+"),
		Stopped: stopped,
	}
}

// StopLossRotation is SmartRotation with a per-asset stop: an asset held
// on the prior date whose close has fallen more than stopLossPct from its
// trailing n-day high is barred from selection for that date. Barred
// assets are recorded on the signal for reporting.
type StopLossRotation struct {
	SmartRotation
	stopLossPct float64
}

// NewStopLossRotation validates the parameters and creates a
// StopLossRotation.
func NewStopLossRotation(m, n, k int, corrThreshold, stopLossPct float64) (*StopLossRotation, error) {
	base, err := NewSmartRotation(m, n, k, corrThreshold)
	if err != nil {
		return nil, err
	}
	if stopLossPct <= 0 || stopLossPct >= 1 {
		return nil, fmt.Errorf("stop-loss-rotation: stop loss pct must be in (0,1), got %v", stopLossPct)
	}
	return &StopLossRotation{SmartRotation: *base, stopLossPct: stopLossPct}, nil
}

// Name returns "stop-loss-rotation".
func (s *StopLossRotation) Name() string { return "stop-loss-rotation" }

// Params returns the selection, window, and stop parameters.
func (s *StopLossRotation) Params() map[string]float64 {
	p := s.SmartRotation.Params()
	p["stop_loss_pct"] = s.stopLossPct
	return p
}

// Precompute runs the smart-rotation scan while carrying the prior date's
// selection forward to evaluate stops.
func (s *StopLossRotation) Precompute(h *series.Aligned) (*Table, error) {
	table := NewTable(h.Dates())
	var prevSelected []string
	for t := s.n; t < h.Len(); t++ {
		ranked := s.rank(h, t)
		if len(ranked) == 0 {
			continue
		}

		barred := make(map[string]struct{})
		var stopped []string
		for _, sym := range prevSelected {
			if s.stopTriggered(h, sym, t) {
				barred[sym] = struct{}{}
				stopped = append(stopped, sym)
			}
		}
		sort.Strings(stopped)

		selected := s.selectDiversified(h, t, ranked, barred)
		table.Set(t, s.signal(h, t, selected, stopped))
		prevSelected = selected
	}
	return table, nil
}

// stopTriggered reports whether the asset's close at t has fallen more
// than stopLossPct below its highest close in the trailing n-day window.
func (s *StopLossRotation) stopTriggered(h *series.Aligned, sym string, t int) bool {
	cur, ok := h.Close(sym, t)
	if !ok {
		return false
	}
	high := cur
	for i := t - s.n + 1; i <= t; i++ {
		if c, ok := h.Close(sym, i); ok && c > high {
			high = c
		}
	}
	if high == 0 {
		return false
	}
	return cur < high*(1-s.stopLossPct)
}
