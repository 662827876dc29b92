package strategy

import (
	"fmt"
	"math"

	"rotor/internal/series"
)

// Compile-time interface check.
var _ Strategy = (*MomentumRotation)(nil)

// weightSumTolerance bounds how far a scenario's weights may drift from 1.0
// before configuration is rejected.
const weightSumTolerance = 1e-9

// Scenario is one fixed market-regime portfolio: a named set of asset
// weights summing to 1.0. The four regimes (bull-surge, slow-bull,
// slow-bear, panic) are immutable configuration, not derived from data.
type Scenario struct {
	Key     string
	Name    string
	Weights Weights
}

// MomentumRotation rotates the whole portfolio among fixed scenarios. For
// each date it scores every scenario by the n-day return of a wealth index
// rebalanced daily to the scenario weights, and holds the scenario with
// the highest score.
type MomentumRotation struct {
	scenarios []Scenario // priority order: earlier wins ties
	n         int
}

// NewMomentumRotation creates a MomentumRotation over the given scenarios
// with an n-day lookback. Scenario order defines the tie-break priority.
func NewMomentumRotation(scenarios []Scenario, n int) (*MomentumRotation, error) {
	if err := validateWindow("momentum", "n", n); err != nil {
		return nil, err
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("momentum: no scenarios configured")
	}
	seen := make(map[string]struct{}, len(scenarios))
	for _, sc := range scenarios {
		if sc.Key == "" {
			return nil, fmt.Errorf("momentum: scenario with empty key")
		}
		if _, dup := seen[sc.Key]; dup {
			return nil, fmt.Errorf("momentum: duplicate scenario %q", sc.Key)
		}
		seen[sc.Key] = struct{}{}
		if s := sc.Weights.Sum(); math.Abs(s-1.0) > weightSumTolerance {
			return nil, fmt.Errorf("momentum: scenario %q weights sum to %v, want 1.0", sc.Key, s)
		}
	}
	return &MomentumRotation{scenarios: scenarios, n: n}, nil
}

// Name returns "momentum-rotation".
func (m *MomentumRotation) Name() string { return "momentum-rotation" }

// Params returns the lookback window.
func (m *MomentumRotation) Params() map[string]float64 {
	return map[string]float64{"n": float64(m.n)}
}

// Precompute scores every scenario on every date and emits the winning
// scenario's fixed weight vector. Signals exist from the first date on
// which at least one universe asset satisfies the lookback window.
func (m *MomentumRotation) Precompute(h *series.Aligned) (*Table, error) {
	table := NewTable(h.Dates())

	prev := ""
	for t := m.n; t < h.Len(); t++ {
		if !m.anyWindow(h, t) {
			continue
		}

		scores := make([]float64, len(m.scenarios))
		for i, sc := range m.scenarios {
			scores[i] = m.score(h, sc, t)
		}

		best := scores[0]
		for _, s := range scores[1:] {
			if s > best {
				best = s
			}
		}

		// Tie-break: retain the previous choice when it is among the tied
		// candidates, to avoid spurious turnover; otherwise the earliest
		// scenario in priority order wins.
		choice := ""
		for i, sc := range m.scenarios {
			if scores[i] != best {
				continue
			}
			if sc.Key == prev {
				choice = prev
				break
			}
			if choice == "" {
				choice = sc.Key
			}
		}

		sc := m.scenario(choice)
		table.Set(t, &Signal{
			Date:    h.Date(t),
			Weights: sc.Weights,
			Choice:  sc.Key,
		})
		prev = choice
	}

	return table, nil
}

// score compounds the scenario's daily returns over the window (t-n, t]
// into a wealth index and returns its total return. On each day the index
// earns the weighted sum of the constituents' close-to-close returns;
// constituents without a close on a day contribute zero, the same as
// holding their slice in cash until data begins.
func (m *MomentumRotation) score(h *series.Aligned, sc Scenario, t int) float64 {
	wealth := 1.0
	for d := t - m.n + 1; d <= t; d++ {
		var r float64
		for sym, w := range sc.Weights {
			prev, okPrev := h.Close(sym, d-1)
			cur, okCur := h.Close(sym, d)
			if !okPrev || !okCur || prev == 0 {
				continue
			}
			r += w * (cur/prev - 1)
		}
		wealth *= 1 + r
	}
	return wealth - 1
}

// anyWindow reports whether any universe asset has real history covering
// the lookback window ending at t.
func (m *MomentumRotation) anyWindow(h *series.Aligned, t int) bool {
	for _, sym := range h.Symbols() {
		if h.HasWindow(sym, t, m.n) {
			return true
		}
	}
	return false
}

func (m *MomentumRotation) scenario(key string) Scenario {
	for _, sc := range m.scenarios {
		if sc.Key == key {
			return sc
		}
	}
	return m.scenarios[0]
}
