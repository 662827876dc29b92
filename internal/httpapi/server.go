// Package httpapi serves backtest results and strategy signals over a
// JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"rotor/internal/backtest"
	"rotor/internal/domain"
	"rotor/internal/report"
	"rotor/internal/store"
	"rotor/internal/strategy"
	"rotor/internal/util"
)

// Server serves the result of the latest backtest run plus the persisted
// signal and run history. The in-memory result is computed once at startup
// and treated as immutable.
type Server struct {
	universe     map[string]domain.Asset
	universeList []domain.Asset
	strategyName string
	table        *strategy.Table
	result       *backtest.Result
	metrics      *backtest.Metrics
	signals      store.SignalStore
	runs         store.RunStore
	log          *slog.Logger
}

// NewServer creates a Server over one completed backtest run. signals and
// runs may be nil when no SQLite store is configured; the corresponding
// endpoints then return empty lists.
func NewServer(universe []domain.Asset, strategyName string, table *strategy.Table, result *backtest.Result, metrics *backtest.Metrics, signals store.SignalStore, runs store.RunStore, log *slog.Logger) *Server {
	bySymbol := make(map[string]domain.Asset, len(universe))
	for _, a := range universe {
		bySymbol[a.Symbol] = a
	}
	return &Server{
		universe:     bySymbol,
		universeList: universe,
		strategyName: strategyName,
		table:        table,
		result:       result,
		metrics:      metrics,
		signals:      signals,
		runs:         runs,
		log:          log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/assets", s.handleAssets)
	mux.HandleFunc("GET /api/nav", s.handleNav)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/signal", s.handleSignal)
	mux.HandleFunc("GET /api/signals", s.handleSignals)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/chart", s.handleChart)
	mux.HandleFunc("GET /api/chart/drawdown", s.handleDrawdownChart)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleAssets(w http.ResponseWriter, _ *http.Request) {
	out := make([]AssetResponse, 0, len(s.universeList))
	for _, a := range s.universeList {
		out = append(out, AssetResponse{
			Symbol:   a.Symbol,
			Name:     a.Name,
			Category: string(a.Category),
			Market:   string(a.Market),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleNav(w http.ResponseWriter, _ *http.Request) {
	out := make([]NavPoint, 0, len(s.result.Records))
	for _, rec := range s.result.Records {
		out = append(out, NavPoint{
			Date:       rec.Date.Format("2006-01-02"),
			NAV:        rec.NAV,
			Turnover:   rec.Turnover,
			Commission: rec.Commission,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.metrics)
}

func (s *Server) handleSignal(w http.ResponseWriter, _ *http.Request) {
	sig, ok := s.table.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no signal available yet")
		return
	}
	writeJSON(w, SignalResponse{
		Strategy:  s.strategyName,
		Date:      sig.Date.Format("2006-01-02"),
		ApplyDate: util.NextTradingDay(sig.Date).Format("2006-01-02"),
		Choice:    sig.Choice,
		Weights:   sig.Weights,
		Stopped:   sig.Stopped,
	})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if s.signals == nil {
		writeJSON(w, []SignalResponse{})
		return
	}
	recs, err := s.signals.ListSignals(r.Context(), s.strategyName, limitParam(r, 30))
	if err != nil {
		s.log.Error("listing signals", "error", err)
		writeError(w, http.StatusInternalServerError, "listing signals failed")
		return
	}
	out := make([]SignalResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, SignalResponse{
			Strategy:  rec.Strategy,
			Date:      rec.Date.Format("2006-01-02"),
			ApplyDate: rec.ApplyDate.Format("2006-01-02"),
			Choice:    rec.Choice,
			Weights:   rec.Weights,
			Stopped:   rec.Stopped,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, []RunResponse{})
		return
	}
	recs, err := s.runs.ListRuns(r.Context(), limitParam(r, 20))
	if err != nil {
		s.log.Error("listing runs", "error", err)
		writeError(w, http.StatusInternalServerError, "listing runs failed")
		return
	}
	out := make([]RunResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, RunResponse{
			ID:               rec.ID,
			Strategy:         rec.Strategy,
			Params:           rec.Params,
			StartDate:        rec.StartDate.Format("2006-01-02"),
			EndDate:          rec.EndDate.Format("2006-01-02"),
			InitialCapital:   rec.InitialCapital,
			FinalNAV:         rec.FinalNAV,
			TotalReturn:      rec.TotalReturn,
			AnnualizedReturn: rec.AnnualizedReturn,
			SharpeRatio:      rec.SharpeRatio,
			MaxDrawdown:      rec.MaxDrawdown,
			CalmarRatio:      rec.CalmarRatio,
			CreatedAt:        rec.CreatedAt,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	png, err := report.NAVChart(s.strategyName, s.result.Records, s.metrics)
	if err != nil {
		s.log.Error("rendering nav chart", "error", err)
		writeError(w, http.StatusInternalServerError, "chart rendering failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) handleDrawdownChart(w http.ResponseWriter, _ *http.Request) {
	png, err := report.DrawdownChart(s.strategyName, s.result.Records)
	if err != nil {
		s.log.Error("rendering drawdown chart", "error", err)
		writeError(w, http.StatusInternalServerError, "chart rendering failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func limitParam(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
