// Package config loads and validates the application configuration from a
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rotor/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the rotor platform.
type Config struct {
	Storage   Storage          `yaml:"storage"`
	Server    Server           `yaml:"server"`
	Alpaca    Alpaca           `yaml:"alpaca"`
	Logging   Logging          `yaml:"logging"`
	Gather    GatherConfig     `yaml:"gather"`
	Universe  []AssetConfig    `yaml:"universe"`
	Scenarios []ScenarioConfig `yaml:"scenarios"`
	Strategy  StrategyConfig   `yaml:"strategy"`
	Backtest  BacktestConfig   `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API,
// used to gather the US benchmark series.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls data gathering behaviour per market.
type GatherConfig struct {
	CNDaily GatherJobConfig `yaml:"cn_daily"`
	USDaily GatherJobConfig `yaml:"us_daily"`
}

// GatherJobConfig holds parameters for a single data gathering job.
type GatherJobConfig struct {
	StartDate       string `yaml:"start_date"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxAttempts     int    `yaml:"max_attempts"`
}

// AssetConfig declares one tradable asset of the rotation universe.
type AssetConfig struct {
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Market   string `yaml:"market"`
}

// ScenarioConfig declares one fixed market-regime portfolio for the
// momentum rotation. List order defines tie-break priority.
type ScenarioConfig struct {
	Key     string             `yaml:"key"`
	Name    string             `yaml:"name"`
	Weights map[string]float64 `yaml:"weights"`
}

// StrategyConfig selects the active strategy and its parameters.
type StrategyConfig struct {
	Active   string         `yaml:"active"`
	Momentum MomentumConfig `yaml:"momentum"`
	Smart    SmartConfig    `yaml:"smart"`
	StopLoss StopLossConfig `yaml:"stop_loss"`
}

// MomentumConfig parameterizes the scenario momentum rotation.
type MomentumConfig struct {
	N int `yaml:"n"`
}

// SmartConfig parameterizes the risk-adjusted rotation.
type SmartConfig struct {
	M             int     `yaml:"m"`
	N             int     `yaml:"n"`
	K             int     `yaml:"k"`
	CorrThreshold float64 `yaml:"corr_threshold"`
}

// StopLossConfig parameterizes the stop-loss variant of the risk-adjusted
// rotation.
type StopLossConfig struct {
	M             int     `yaml:"m"`
	N             int     `yaml:"n"`
	K             int     `yaml:"k"`
	CorrThreshold float64 `yaml:"corr_threshold"`
	StopLossPct   float64 `yaml:"stop_loss_pct"`
}

// BacktestConfig defines simulation parameters.
type BacktestConfig struct {
	StartDate      string  `yaml:"start_date"`
	InitialCapital float64 `yaml:"initial_capital"`
	CommissionRate float64 `yaml:"commission_rate"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars take highest priority; the SDK reads the
	// same names.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills fields that have a sensible default when the file
// leaves them unset.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/rotor.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8600
	}
	if cfg.Gather.CNDaily.RateLimitPerMin == 0 {
		cfg.Gather.CNDaily.RateLimitPerMin = 60
	}
	if cfg.Gather.CNDaily.MaxAttempts == 0 {
		cfg.Gather.CNDaily.MaxAttempts = 3
	}
	if cfg.Gather.USDaily.MaxAttempts == 0 {
		cfg.Gather.USDaily.MaxAttempts = 3
	}
	if cfg.Backtest.InitialCapital == 0 {
		cfg.Backtest.InitialCapital = 1_000_000
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks cross-field consistency: every asset is well-formed,
// every scenario weight references a universe symbol, and the dates parse.
func (c *Config) Validate() error {
	if len(c.Universe) == 0 {
		return fmt.Errorf("config: universe is empty")
	}
	symbols := make(map[string]struct{}, len(c.Universe))
	for _, a := range c.Universe {
		if a.Symbol == "" {
			return fmt.Errorf("config: universe asset with empty symbol")
		}
		if _, dup := symbols[a.Symbol]; dup {
			return fmt.Errorf("config: duplicate universe symbol %q", a.Symbol)
		}
		symbols[a.Symbol] = struct{}{}
		switch domain.Market(a.Market) {
		case domain.MarketCN, domain.MarketUS:
		default:
			return fmt.Errorf("config: asset %s: unknown market %q", a.Symbol, a.Market)
		}
		switch domain.Category(a.Category) {
		case domain.CategoryEquity, domain.CategoryBond, domain.CategoryGold, domain.CategoryCash:
		default:
			return fmt.Errorf("config: asset %s: unknown category %q", a.Symbol, a.Category)
		}
	}

	for _, sc := range c.Scenarios {
		if sc.Key == "" {
			return fmt.Errorf("config: scenario with empty key")
		}
		for sym := range sc.Weights {
			if _, ok := symbols[sym]; !ok {
				return fmt.Errorf("config: scenario %s references unknown symbol %q", sc.Key, sym)
			}
		}
	}

	for _, d := range []struct{ name, value string }{
		{"backtest.start_date", c.Backtest.StartDate},
		{"gather.cn_daily.start_date", c.Gather.CNDaily.StartDate},
		{"gather.us_daily.start_date", c.Gather.USDaily.StartDate},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d.value); err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
	}

	if c.Backtest.CommissionRate < 0 {
		return fmt.Errorf("config: commission_rate must be non-negative, got %v", c.Backtest.CommissionRate)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("config: initial_capital must be positive, got %v", c.Backtest.InitialCapital)
	}
	return nil
}

// Assets converts the configured universe into domain assets.
func (c *Config) Assets() []domain.Asset {
	out := make([]domain.Asset, 0, len(c.Universe))
	for _, a := range c.Universe {
		out = append(out, domain.Asset{
			Symbol:   a.Symbol,
			Name:     a.Name,
			Category: domain.Category(a.Category),
			Market:   domain.Market(a.Market),
		})
	}
	return out
}

// StartDate parses the backtest start date. A zero time means the whole
// available history.
func (c *Config) StartDate() (time.Time, error) {
	if c.Backtest.StartDate == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", c.Backtest.StartDate)
}
