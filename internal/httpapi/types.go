package httpapi

import "time"

// AssetResponse is one universe asset.
type AssetResponse struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Market   string `json:"market"`
}

// NavPoint is one date of the NAV curve.
type NavPoint struct {
	Date       string  `json:"date"`
	NAV        float64 `json:"nav"`
	Turnover   float64 `json:"turnover"`
	Commission float64 `json:"commission"`
}

// SignalResponse is the latest strategy recommendation.
type SignalResponse struct {
	Strategy  string             `json:"strategy"`
	Date      string             `json:"date"`
	ApplyDate string             `json:"applyDate"`
	Choice    string             `json:"choice"`
	Weights   map[string]float64 `json:"weights"`
	Stopped   []string           `json:"stopped,omitempty"`
}

// RunResponse is one persisted backtest run summary.
type RunResponse struct {
	ID               int64              `json:"id"`
	Strategy         string             `json:"strategy"`
	Params           map[string]float64 `json:"params"`
	StartDate        string             `json:"startDate"`
	EndDate          string             `json:"endDate"`
	InitialCapital   float64            `json:"initialCapital"`
	FinalNAV         float64            `json:"finalNav"`
	TotalReturn      float64            `json:"totalReturn"`
	AnnualizedReturn float64            `json:"annualizedReturn"`
	SharpeRatio      float64            `json:"sharpeRatio"`
	MaxDrawdown      float64            `json:"maxDrawdown"`
	CalmarRatio      float64            `json:"calmarRatio"`
	CreatedAt        time.Time          `json:"createdAt"`
}
