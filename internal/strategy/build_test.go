package strategy

import (
	"testing"

	"rotor/internal/config"
)

func buildConfig() *config.Config {
	return &config.Config{
		Scenarios: []config.ScenarioConfig{
			{Key: "growth", Weights: map[string]float64{"510300": 1.0}},
			{Key: "panic", Weights: map[string]float64{"518880": 1.0}},
		},
		Strategy: config.StrategyConfig{
			Active:   "momentum-rotation",
			Momentum: config.MomentumConfig{N: 20},
			Smart:    config.SmartConfig{M: 2, N: 20, K: 60, CorrThreshold: 0.7},
			StopLoss: config.StopLossConfig{M: 2, N: 20, K: 60, CorrThreshold: 0.7, StopLossPct: 0.08},
		},
	}
}

func TestDefaultRegistryList(t *testing.T) {
	got := DefaultRegistry.List()
	want := []string{"momentum-rotation", "smart-rotation", "stop-loss-rotation"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFromConfigResolvesEachStrategy(t *testing.T) {
	cfg := buildConfig()
	for _, name := range DefaultRegistry.List() {
		cfg.Strategy.Active = name
		s, err := FromConfig(cfg)
		if err != nil {
			t.Fatalf("FromConfig(%s): %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("built %q, want %q", s.Name(), name)
		}
	}
}

func TestFromConfigUnknownStrategy(t *testing.T) {
	cfg := buildConfig()
	cfg.Strategy.Active = "mean-reversion"
	if _, err := FromConfig(cfg); err == nil {
		t.Error("expected error for unregistered strategy")
	}
}

func TestFromConfigBadParamsSurface(t *testing.T) {
	cfg := buildConfig()
	cfg.Strategy.Active = "smart-rotation"
	cfg.Strategy.Smart.M = 0
	if _, err := FromConfig(cfg); err == nil {
		t.Error("expected builder to reject m=0")
	}
}
