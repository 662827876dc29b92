// Package store defines storage interfaces for persisting and retrieving
// daily bars, emitted signals, and backtest run summaries.
package store

import (
	"context"
	"time"

	"rotor/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market, merging
	// with any bars already stored for the same dates.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within
	// [start, end], sorted by date.
	ReadBars(ctx context.Context, market domain.Market, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// SignalRecord is one persisted strategy recommendation.
type SignalRecord struct {
	ID        int64
	Strategy  string
	Date      time.Time // the close the signal was computed on
	ApplyDate time.Time // the session the weights should be applied at
	Choice    string
	Weights   map[string]float64
	Stopped   []string
	CreatedAt time.Time
}

// SignalStore persists and retrieves emitted signals.
type SignalStore interface {
	// SaveSignal inserts a new signal record.
	SaveSignal(ctx context.Context, rec *SignalRecord) error

	// ListSignals returns the most recent signals for a strategy, newest
	// first, up to limit.
	ListSignals(ctx context.Context, strategy string, limit int) ([]SignalRecord, error)

	// LatestSignal returns the newest signal for a strategy, or nil when
	// none has been recorded.
	LatestSignal(ctx context.Context, strategy string) (*SignalRecord, error)
}

// RunRecord is one persisted backtest run summary.
type RunRecord struct {
	ID               int64
	Strategy         string
	Params           map[string]float64
	StartDate        time.Time
	EndDate          time.Time
	InitialCapital   float64
	FinalNAV         float64
	TotalReturn      float64
	AnnualizedReturn float64
	SharpeRatio      float64
	MaxDrawdown      float64
	CalmarRatio      float64
	CreatedAt        time.Time
}

// RunStore persists and retrieves backtest run summaries.
type RunStore interface {
	// SaveRun inserts a new run record and sets rec.ID.
	SaveRun(ctx context.Context, rec *RunRecord) error

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
