// Package strategy defines the Strategy contract for rotation strategies
// and provides a Registry for managing the available implementations.
//
// A strategy precomputes its whole signal table in one pass over the
// aligned history. The signal stored at calendar index T is a function of
// prices with index <= T only; the backtest engine applies it at index
// T+1's open, which keeps the simulation free of lookahead.
package strategy

import (
	"fmt"
	"sort"
	"time"

	"rotor/internal/series"
)

// Weights maps asset symbols to target portfolio weights. Symbols absent
// from the map have weight zero; any shortfall below 1.0 is held as cash.
type Weights map[string]float64

// Sum returns the total allocated weight.
func (w Weights) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// Equal reports whether two weight vectors are identical.
func (w Weights) Equal(other Weights) bool {
	if len(w) != len(other) {
		return false
	}
	for sym, v := range w {
		if ov, ok := other[sym]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Symbols returns the allocated symbols in sorted order.
func (w Weights) Symbols() []string {
	syms := make([]string, 0, len(w))
	for sym := range w {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// Signal is the target allocation computed at one date's close, to be
// applied at the next trading date's open.
type Signal struct {
	Date    time.Time
	Weights Weights

	// Choice names what the strategy picked: a scenario key for momentum
	// rotation, or the selected symbols joined for the universe strategies.
	Choice string

	// Stopped lists assets barred from selection by a stop-loss rule on
	// this date. Empty for strategies without stops.
	Stopped []string
}

// Table holds one Signal per calendar index, keyed to the aligned history
// the strategy was precomputed against. Indices before the first date where
// the lookback window is satisfiable have no entry.
type Table struct {
	dates   []time.Time
	signals []*Signal
	first   int
}

// NewTable creates an empty table over the given calendar.
func NewTable(dates []time.Time) *Table {
	return &Table{
		dates:   dates,
		signals: make([]*Signal, len(dates)),
		first:   -1,
	}
}

// Set stores the signal for calendar index i.
func (t *Table) Set(i int, s *Signal) {
	if i < 0 || i >= len(t.signals) {
		return
	}
	t.signals[i] = s
	if t.first < 0 || i < t.first {
		t.first = i
	}
}

// At returns the signal for calendar index i, if one exists.
func (t *Table) At(i int) (*Signal, bool) {
	if i < 0 || i >= len(t.signals) || t.signals[i] == nil {
		return nil, false
	}
	return t.signals[i], true
}

// First returns the calendar index of the earliest signal, or -1 when the
// table is empty.
func (t *Table) First() int { return t.first }

// Len returns the calendar length the table spans.
func (t *Table) Len() int { return len(t.signals) }

// Latest returns the most recent signal in the table. The live-signal path
// reads this entry to recommend next-trading-day weights.
func (t *Table) Latest() (*Signal, bool) {
	for i := len(t.signals) - 1; i >= 0; i-- {
		if t.signals[i] != nil {
			return t.signals[i], true
		}
	}
	return nil, false
}

// Strategy is the contract all rotation strategies implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Params returns the numeric parameters the strategy was built with,
	// for reporting and persistence.
	Params() map[string]float64

	// Precompute runs the strategy over the full aligned history and
	// returns the per-date signal table. The signal at index T must depend
	// only on prices with index <= T.
	Precompute(h *series.Aligned) (*Table, error)
}

// validateWindow rejects non-positive lookback windows before any
// simulation begins.
func validateWindow(name, param string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%s: %s must be positive, got %d", name, param, n)
	}
	return nil
}
