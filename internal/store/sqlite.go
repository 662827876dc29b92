package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ SignalStore = (*SQLiteStore)(nil)
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements SignalStore and RunStore backed by a SQLite
// database. Weight vectors and parameter maps are stored as JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS signals (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy    TEXT NOT NULL,
	date        TEXT NOT NULL,
	apply_date  TEXT NOT NULL,
	choice      TEXT NOT NULL,
	weights     TEXT NOT NULL,
	stopped     TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_strategy_date ON signals(strategy, date);

CREATE TABLE IF NOT EXISTS backtest_runs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy          TEXT NOT NULL,
	params            TEXT NOT NULL,
	start_date        TEXT NOT NULL,
	end_date          TEXT NOT NULL,
	initial_capital   REAL NOT NULL,
	final_nav         REAL NOT NULL,
	total_return      REAL NOT NULL,
	annualized_return REAL NOT NULL,
	sharpe_ratio      REAL NOT NULL,
	max_drawdown      REAL NOT NULL,
	calmar_ratio      REAL NOT NULL,
	created_at        TEXT NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

const dateFormat = "2006-01-02"

// ---------------------------------------------------------------------------
// SignalStore implementation
// ---------------------------------------------------------------------------

// SaveSignal inserts a new signal record and sets rec.ID.
func (s *SQLiteStore) SaveSignal(ctx context.Context, rec *SignalRecord) error {
	weights, err := json.Marshal(rec.Weights)
	if err != nil {
		return err
	}
	stopped, err := json.Marshal(rec.Stopped)
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO signals (strategy, date, apply_date, choice, weights, stopped, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Strategy,
		rec.Date.Format(dateFormat),
		rec.ApplyDate.Format(dateFormat),
		rec.Choice,
		string(weights),
		string(stopped),
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save signal: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// ListSignals returns the most recent signals for a strategy, newest first.
func (s *SQLiteStore) ListSignals(ctx context.Context, strategy string, limit int) ([]SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, strategy, date, apply_date, choice, weights, stopped, created_at
FROM signals WHERE strategy = ? ORDER BY date DESC, id DESC LIMIT ?`,
		strategy, limit)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		rec, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// LatestSignal returns the newest signal for a strategy, or nil when none
// has been recorded.
func (s *SQLiteStore) LatestSignal(ctx context.Context, strategy string) (*SignalRecord, error) {
	recs, err := s.ListSignals(ctx, strategy, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func scanSignal(rows *sql.Rows) (*SignalRecord, error) {
	var (
		rec                                SignalRecord
		date, apply, wjson, sjson, created string
	)
	if err := rows.Scan(&rec.ID, &rec.Strategy, &date, &apply, &rec.Choice, &wjson, &sjson, &created); err != nil {
		return nil, err
	}
	var err error
	if rec.Date, err = time.Parse(dateFormat, date); err != nil {
		return nil, err
	}
	if rec.ApplyDate, err = time.Parse(dateFormat, apply); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(wjson), &rec.Weights); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sjson), &rec.Stopped); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts a new backtest run summary and sets rec.ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec *RunRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO backtest_runs (
	strategy, params, start_date, end_date, initial_capital, final_nav,
	total_return, annualized_return, sharpe_ratio, max_drawdown, calmar_ratio,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Strategy,
		string(params),
		rec.StartDate.Format(dateFormat),
		rec.EndDate.Format(dateFormat),
		rec.InitialCapital,
		rec.FinalNAV,
		rec.TotalReturn,
		rec.AnnualizedReturn,
		rec.SharpeRatio,
		rec.MaxDrawdown,
		rec.CalmarRatio,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// ListRuns returns the most recent backtest runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, strategy, params, start_date, end_date, initial_capital, final_nav,
       total_return, annualized_return, sharpe_ratio, max_drawdown, calmar_ratio,
       created_at
FROM backtest_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec                        RunRecord
			pjson, start, end, created string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Strategy, &pjson, &start, &end,
			&rec.InitialCapital, &rec.FinalNAV, &rec.TotalReturn,
			&rec.AnnualizedReturn, &rec.SharpeRatio, &rec.MaxDrawdown,
			&rec.CalmarRatio, &created,
		); err != nil {
			return nil, err
		}
		if rec.StartDate, err = time.Parse(dateFormat, start); err != nil {
			return nil, err
		}
		if rec.EndDate, err = time.Parse(dateFormat, end); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pjson), &rec.Params); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
