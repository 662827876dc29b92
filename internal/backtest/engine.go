// Package backtest replays a precomputed signal table against aligned
// price history under T+1 execution: the weight vector computed at date
// T-1's close is applied at date T's open, commission is charged on
// traded notional, and NAV is marked at each close.
package backtest

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"rotor/internal/series"
	"rotor/internal/strategy"
)

// Record is one simulated date of a backtest run.
type Record struct {
	Date       time.Time
	NAV        float64
	Turnover   float64 // absolute notional traded on this date
	Commission float64 // commission paid on this date
}

// Trade is one executed rebalancing order.
type Trade struct {
	Date     time.Time
	Symbol   string
	Notional float64 // signed; negative sells
	Units    float64 // signed unit count at Price
	Price    float64 // execution price (the date's open)
}

// Result is the full trajectory of one backtest run. It is append-only
// while the run executes and immutable once Run returns.
type Result struct {
	Records []Record
	Trades  []Trade
}

// FinalNAV returns the NAV at the last simulated date.
func (r *Result) FinalNAV() float64 {
	if len(r.Records) == 0 {
		return 0
	}
	return r.Records[len(r.Records)-1].NAV
}

// TotalCommission returns the commission paid over the whole run.
func (r *Result) TotalCommission() float64 {
	var total float64
	for _, rec := range r.Records {
		total += rec.Commission
	}
	return total
}

// DataGapError reports a date on which a required asset had no usable
// price. The run aborts rather than silently skipping, since a skipped
// price would corrupt the NAV accounting.
type DataGapError struct {
	Symbol string
	Date   time.Time
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no price for %s on %s", e.Symbol, e.Date.Format("2006-01-02"))
}

// Engine executes backtest runs. It holds no per-run state: every Run
// carries its own accumulator, so runs with different parameters may
// execute concurrently against the same read-only history.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates an Engine logging through the given logger (nil uses
// the default).
func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log.With("component", "backtest")}
}

// Run replays the signal table over the aligned history starting from
// initialCapital. Dates before the first signal are the warming-up state:
// no positions, NAV flat. From the first date with a prior-date signal
// onward the engine rebalances at the open whenever the target weight
// vector differs from the one currently held; unchanged weights produce
// zero deltas and therefore no trades, while price drift is still
// captured by the close-of-day mark.
func (e *Engine) Run(table *strategy.Table, h *series.Aligned, initialCapital, commissionRate float64) (*Result, error) {
	if table == nil || h == nil {
		return nil, fmt.Errorf("backtest: nil signal table or history")
	}
	if initialCapital <= 0 {
		return nil, fmt.Errorf("backtest: initial capital must be positive, got %v", initialCapital)
	}
	if commissionRate < 0 {
		return nil, fmt.Errorf("backtest: commission rate must be non-negative, got %v", commissionRate)
	}
	if table.Len() != h.Len() {
		return nil, fmt.Errorf("backtest: signal table spans %d dates, history spans %d", table.Len(), h.Len())
	}

	cash := initialCapital
	units := make(map[string]float64)
	var active strategy.Weights // weight vector currently held; nil while warming up

	res := &Result{Records: make([]Record, 0, h.Len())}

	for t := 0; t < h.Len(); t++ {
		sig, ok := table.At(t - 1)
		if !ok && active == nil {
			// Warming-up: no signal has existed yet.
			res.Records = append(res.Records, Record{Date: h.Date(t), NAV: initialCapital})
			continue
		}

		var turnover, commission float64
		if ok && !sig.Weights.Equal(active) {
			var err error
			turnover, commission, err = e.rebalance(h, t, sig.Weights, &cash, units, commissionRate, res)
			if err != nil {
				return nil, err
			}
			active = sig.Weights
		}

		nav := cash
		for sym, u := range units {
			c, okClose := h.Close(sym, t)
			if !okClose {
				return nil, &DataGapError{Symbol: sym, Date: h.Date(t)}
			}
			nav += u * c
		}
		res.Records = append(res.Records, Record{
			Date:       h.Date(t),
			NAV:        nav,
			Turnover:   turnover,
			Commission: commission,
		})
	}

	e.log.Debug("run complete",
		"dates", len(res.Records),
		"trades", len(res.Trades),
		"finalNAV", res.FinalNAV(),
	)
	return res, nil
}

// rebalance trades from the current holdings to the target weights at
// index t's open. It mutates cash and units in place and returns the
// turnover and commission of the step.
func (e *Engine) rebalance(h *series.Aligned, t int, target strategy.Weights, cash *float64, units map[string]float64, commissionRate float64, res *Result) (float64, float64, error) {
	date := h.Date(t)

	// Value the portfolio at the open. Held assets that did not trade on
	// this date are valued at the carried close; they only need a real
	// open if the rebalance actually trades them.
	nav := *cash
	prices := make(map[string]float64)
	realOpen := make(map[string]bool)
	for _, sym := range tradeUnion(units, target) {
		px, real, err := openOrCarried(h, sym, t)
		if err != nil {
			return 0, 0, err
		}
		prices[sym] = px
		realOpen[sym] = real
		nav += units[sym] * px
	}

	var turnover float64
	for _, sym := range tradeUnion(units, target) {
		px := prices[sym]
		current := units[sym] * px
		desired := target[sym] * nav
		delta := desired - current
		if delta == 0 {
			continue
		}
		if !realOpen[sym] {
			return 0, 0, &DataGapError{Symbol: sym, Date: date}
		}
		turnover += math.Abs(delta)
		res.Trades = append(res.Trades, Trade{
			Date:     date,
			Symbol:   sym,
			Notional: delta,
			Units:    delta / px,
			Price:    px,
		})
		if desired == 0 {
			delete(units, sym)
		} else {
			units[sym] = desired / px
		}
	}

	commission := turnover * commissionRate
	*cash = nav*(1-target.Sum()) - commission
	return turnover, commission, nil
}

// openOrCarried returns the execution/valuation price for a symbol at
// index t: the real open when the asset traded, otherwise the carried
// close. real reports whether the price is a genuine open.
func openOrCarried(h *series.Aligned, sym string, t int) (float64, bool, error) {
	if px, ok := h.Open(sym, t); ok {
		return px, true, nil
	}
	if px, ok := h.Close(sym, t); ok {
		return px, false, nil
	}
	return 0, false, &DataGapError{Symbol: sym, Date: h.Date(t)}
}

// tradeUnion returns the sorted union of held and targeted symbols, so
// rebalancing iterates deterministically.
func tradeUnion(units map[string]float64, target strategy.Weights) []string {
	set := make(map[string]struct{}, len(units)+len(target))
	for sym := range units {
		set[sym] = struct{}{}
	}
	for sym := range target {
		set[sym] = struct{}{}
	}
	syms := make([]string, 0, len(set))
	for sym := range set {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}
