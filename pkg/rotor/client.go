// Package rotor provides a Go SDK for the rotor-server HTTP API.
package rotor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client provides a Go SDK for interacting with the rotor-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new rotor API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Asset is one universe asset.
type Asset struct {
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

// Metrics summarizes a backtest run.
type Metrics struct {
	TotalReturn          float64 `json:"totalReturn"`
	AnnualizedReturn     float64 `json:"annualizedReturn"`
	AnnualizedVolatility float64 `json:"annualizedVolatility"`
	SharpeRatio          float64 `json:"sharpeRatio"`
	MaxDrawdown          float64 `json:"maxDrawdown"`
	CalmarRatio          float64 `json:"calmarRatio"`
}

// Signal is a strategy recommendation.
type Signal struct {
	Strategy  string             `json:"strategy"`
	Date      string             `json:"date"`
	ApplyDate string             `json:"applyDate"`
	Choice    string             `json:"choice"`
	Weights   map[string]float64 `json:"weights"`
	Stopped   []string           `json:"stopped,omitempty"`
}

// GetAssets retrieves the rotation universe.
func (c *Client) GetAssets(ctx context.Context) ([]Asset, error) {
	var out []Asset
	if err := c.getJSON(ctx, "/api/assets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetNav retrieves the NAV curve of the latest backtest run.
func (c *Client) GetNav(ctx context.Context) ([]NavPoint, error) {
	var out []NavPoint
	if err := c.getJSON(ctx, "/api/nav", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMetrics retrieves the performance metrics of the latest backtest run.
func (c *Client) GetMetrics(ctx context.Context) (*Metrics, error) {
	var out Metrics
	if err := c.getJSON(ctx, "/api/metrics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSignal retrieves the latest strategy recommendation.
func (c *Client) GetSignal(ctx context.Context) (*Signal, error) {
	var out Signal
	if err := c.getJSON(ctx, "/api/signal", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSignals retrieves the most recent persisted signals, newest first.
func (c *Client) GetSignals(ctx context.Context, limit int) ([]Signal, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []Signal
	if err := c.getJSON(ctx, "/api/signals", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetChart retrieves the NAV chart PNG of the latest backtest run.
func (c *Client) GetChart(ctx context.Context) ([]byte, error) {
	resp, err := c.get(ctx, "/api/chart", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rotor: GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	resp, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("rotor: decode %s: %w", path, err)
	}
	return nil
}
