package series

import (
	"context"
	"fmt"
	"time"

	"rotor/internal/domain"
	"rotor/internal/store"
)

// loadFrom is the earliest date ever read from storage. Lookback windows
// need history before the backtest start, so loads always reach back to
// the beginning of the stored data.
var loadFrom = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// LoadAligned reads the full stored history of every universe asset up to
// end and aligns it on the union calendar starting at start. An asset with
// no stored bars at all is an error; the gatherer has to run first.
func LoadAligned(ctx context.Context, bars store.BarStore, universe []domain.Asset, start, end time.Time) (*Aligned, error) {
	if len(universe) == 0 {
		return nil, fmt.Errorf("series: empty universe")
	}
	if end.IsZero() {
		end = Day(time.Now().UTC())
	}

	list := make([]*Series, 0, len(universe))
	for _, asset := range universe {
		raw, err := bars.ReadBars(ctx, asset.Market, asset.Symbol, loadFrom, end)
		if err != nil {
			return nil, fmt.Errorf("series: read %s: %w", asset.Symbol, err)
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("series: no bars stored for %s (%s); gather data first", asset.Symbol, asset.Market)
		}
		s, err := FromBars(asset.Symbol, raw)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}

	return Align(list, start)
}
