package strategy

import (
	"fmt"
	"sort"

	"rotor/internal/config"
)

// Builder constructs a strategy from its configured parameters.
type Builder func(cfg *config.Config) (Strategy, error)

// Registry maps strategy names to builders. Construction is deferred to
// Build so parameters of inactive strategies are never validated.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a builder under the given strategy name.
func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

// Build constructs the named strategy from the config.
func (r *Registry) Build(name string, cfg *config.Config) (Strategy, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("strategy: unknown strategy %q (have %v)", name, r.List())
	}
	return b(cfg)
}

// List returns the registered strategy names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in rotation strategies. The CLIs and the
// server resolve the configured strategy through it via FromConfig.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register("momentum-rotation", func(cfg *config.Config) (Strategy, error) {
		return NewMomentumRotation(ScenariosFromConfig(cfg.Scenarios), cfg.Strategy.Momentum.N)
	})
	r.Register("smart-rotation", func(cfg *config.Config) (Strategy, error) {
		s := cfg.Strategy.Smart
		return NewSmartRotation(s.M, s.N, s.K, s.CorrThreshold)
	})
	r.Register("stop-loss-rotation", func(cfg *config.Config) (Strategy, error) {
		s := cfg.Strategy.StopLoss
		return NewStopLossRotation(s.M, s.N, s.K, s.CorrThreshold, s.StopLossPct)
	})
	return r
}()

// FromConfig constructs the strategy named by cfg.Strategy.Active with its
// configured parameters.
func FromConfig(cfg *config.Config) (Strategy, error) {
	return DefaultRegistry.Build(cfg.Strategy.Active, cfg)
}

// ScenariosFromConfig converts configured scenarios, preserving list order
// as tie-break priority.
func ScenariosFromConfig(list []config.ScenarioConfig) []Scenario {
	out := make([]Scenario, 0, len(list))
	for _, sc := range list {
		w := make(Weights, len(sc.Weights))
		for sym, v := range sc.Weights {
			w[sym] = v
		}
		out = append(out, Scenario{Key: sc.Key, Name: sc.Name, Weights: w})
	}
	return out
}
