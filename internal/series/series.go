// Package series builds aligned daily price histories for the rotation
// universe. Assets trade on differing calendars; alignment merges them onto
// the union calendar, carrying the last known close forward across dates an
// asset did not trade. Opens are never invented: a date without a real bar
// has no open for that asset.
package series

import (
	"fmt"
	"math"
	"sort"
	"time"

	"rotor/internal/domain"
)

// Series is the raw daily (date, open, close) history of a single asset.
// Dates are strictly increasing with no duplicates.
type Series struct {
	Symbol string
	Dates  []time.Time
	Opens  []float64
	Closes []float64
}

// FromBars builds a Series from daily bars. Bars are sorted by date; a
// duplicate date is an error since it would corrupt alignment.
func FromBars(symbol string, bars []domain.Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("series %s: no bars", symbol)
	}

	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	s := &Series{
		Symbol: symbol,
		Dates:  make([]time.Time, 0, len(sorted)),
		Opens:  make([]float64, 0, len(sorted)),
		Closes: make([]float64, 0, len(sorted)),
	}
	for i, b := range sorted {
		d := Day(b.Date)
		if i > 0 && !s.Dates[len(s.Dates)-1].Before(d) {
			return nil, fmt.Errorf("series %s: duplicate date %s", symbol, d.Format("2006-01-02"))
		}
		s.Dates = append(s.Dates, d)
		s.Opens = append(s.Opens, b.Open)
		s.Closes = append(s.Closes, b.Close)
	}
	return s, nil
}

// Day truncates a timestamp to midnight UTC, the canonical form for daily
// bar dates throughout the platform.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Aligned is the read-only merged history of the whole universe on the
// union trading calendar. It is safe for concurrent use once built.
type Aligned struct {
	symbols []string
	dates   []time.Time
	index   map[time.Time]int
	closes  map[string][]float64 // forward-filled; NaN before first real bar
	opens   map[string][]float64 // NaN on dates the asset did not trade
	first   map[string]int       // index of the first real bar per symbol
}

// Align merges per-asset histories onto the union calendar. Dates before
// start are dropped (a zero start keeps everything). Closes are carried
// forward over gaps; opens exist only on dates the asset actually traded.
func Align(list []*Series, start time.Time) (*Aligned, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("align: no series")
	}

	dateSet := make(map[time.Time]struct{})
	for _, s := range list {
		for _, d := range s.Dates {
			if !start.IsZero() && d.Before(Day(start)) {
				continue
			}
			dateSet[d] = struct{}{}
		}
	}
	if len(dateSet) == 0 {
		return nil, fmt.Errorf("align: no dates on or after %s", start.Format("2006-01-02"))
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	a := &Aligned{
		symbols: make([]string, 0, len(list)),
		dates:   dates,
		index:   index,
		closes:  make(map[string][]float64, len(list)),
		opens:   make(map[string][]float64, len(list)),
		first:   make(map[string]int, len(list)),
	}

	for _, s := range list {
		if _, dup := a.closes[s.Symbol]; dup {
			return nil, fmt.Errorf("align: duplicate symbol %s", s.Symbol)
		}

		closes := make([]float64, len(dates))
		opens := make([]float64, len(dates))
		for i := range closes {
			closes[i] = math.NaN()
			opens[i] = math.NaN()
		}

		// The series may begin before the start cutoff; seed the carry with
		// the last close preceding the calendar so the first aligned dates
		// are already filled.
		carry := math.NaN()
		firstIdx := -1
		j := 0
		for j < len(s.Dates) && s.Dates[j].Before(dates[0]) {
			carry = s.Closes[j]
			j++
		}
		if !math.IsNaN(carry) {
			firstIdx = 0
		}

		for i, d := range dates {
			if j < len(s.Dates) && s.Dates[j].Equal(d) {
				carry = s.Closes[j]
				opens[i] = s.Opens[j]
				if firstIdx < 0 {
					firstIdx = i
				}
				j++
			}
			closes[i] = carry
		}

		a.symbols = append(a.symbols, s.Symbol)
		a.closes[s.Symbol] = closes
		a.opens[s.Symbol] = opens
		a.first[s.Symbol] = firstIdx
	}
	sort.Strings(a.symbols)

	return a, nil
}

// Len returns the number of dates on the union calendar.
func (a *Aligned) Len() int { return len(a.dates) }

// Date returns the calendar date at index i.
func (a *Aligned) Date(i int) time.Time { return a.dates[i] }

// Dates returns the full union calendar.
func (a *Aligned) Dates() []time.Time { return a.dates }

// Index returns the calendar index of a date.
func (a *Aligned) Index(d time.Time) (int, bool) {
	i, ok := a.index[Day(d)]
	return i, ok
}

// Symbols returns the sorted universe symbols.
func (a *Aligned) Symbols() []string { return a.symbols }

// Close returns the (possibly carried-forward) close for a symbol at index
// i. ok is false before the symbol's first real bar or for unknown symbols.
func (a *Aligned) Close(symbol string, i int) (float64, bool) {
	closes, ok := a.closes[symbol]
	if !ok || i < 0 || i >= len(closes) || math.IsNaN(closes[i]) {
		return 0, false
	}
	return closes[i], true
}

// Open returns the open for a symbol at index i. ok is false on dates the
// asset did not actually trade; carried closes never produce an open.
func (a *Aligned) Open(symbol string, i int) (float64, bool) {
	opens, ok := a.opens[symbol]
	if !ok || i < 0 || i >= len(opens) || math.IsNaN(opens[i]) {
		return 0, false
	}
	return opens[i], true
}

// FirstIndex returns the calendar index of the symbol's first real bar, or
// -1 for unknown symbols.
func (a *Aligned) FirstIndex(symbol string) int {
	idx, ok := a.first[symbol]
	if !ok {
		return -1
	}
	return idx
}

// HasWindow reports whether the symbol has real history covering the full
// lookback window [i-n, i].
func (a *Aligned) HasWindow(symbol string, i, n int) bool {
	idx, ok := a.first[symbol]
	if !ok || idx < 0 {
		return false
	}
	return i-n >= idx && i < len(a.dates)
}

// Returns computes the daily close-to-close returns for a symbol over the
// index window (from, to], one value per step. Steps where either close is
// unavailable contribute a zero return, matching how carried closes behave.
func (a *Aligned) Returns(symbol string, from, to int) []float64 {
	if from < 0 || to <= from || to >= len(a.dates) {
		return nil
	}
	out := make([]float64, 0, to-from)
	for i := from + 1; i <= to; i++ {
		prev, okPrev := a.Close(symbol, i-1)
		cur, okCur := a.Close(symbol, i)
		if !okPrev || !okCur || prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, cur/prev-1)
	}
	return out
}
