package optim

import (
	"fmt"
	"sort"

	"github.com/san-kum/spinsim/internal/config"
)

// Setter writes one swept value into a configuration.
type Setter func(cfg *config.Config, v float64) error

var params = map[string]Setter{
	"temperature": func(cfg *config.Config, v float64) error {
		cfg.Temperature = v
		return nil
	},
	"alpha": func(cfg *config.Config, v float64) error {
		cfg.Material.Alpha = v
		return nil
	},
	"gamma": func(cfg *config.Config, v float64) error {
		cfg.Material.Gamma = v
		return nil
	},
	"duration": func(cfg *config.Config, v float64) error {
		cfg.Run.Duration = v
		return nil
	},
	"hx": zeemanComponent(0),
	"hy": zeemanComponent(1),
	"hz": zeemanComponent(2),
	"j": func(cfg *config.Config, v float64) error {
		return eachKind(cfg, "exchange", func(ic *config.InteractionConfig) { ic.J = v })
	},
	"d": func(cfg *config.Config, v float64) error {
		return eachKind(cfg, "anisotropy", func(ic *config.InteractionConfig) { ic.D = v })
	},
}

// zeemanComponent sets one component of every applied field, adding a
// zeeman term when the configuration has none.
func zeemanComponent(axis int) Setter {
	return func(cfg *config.Config, v float64) error {
		if eachKind(cfg, "zeeman", func(ic *config.InteractionConfig) { ic.H[axis] = v }) != nil {
			ic := config.InteractionConfig{Kind: "zeeman"}
			ic.H[axis] = v
			cfg.Interactions = append(cfg.Interactions, ic)
		}
		return nil
	}
}

func eachKind(cfg *config.Config, kind string, set func(*config.InteractionConfig)) error {
	found := false
	for i := range cfg.Interactions {
		if cfg.Interactions[i].Kind == kind {
			set(&cfg.Interactions[i])
			found = true
		}
	}
	if !found {
		return fmt.Errorf("no %s interaction to sweep", kind)
	}
	return nil
}

// Apply sets name to v on cfg.
func Apply(cfg *config.Config, name string, v float64) error {
	set, ok := params[name]
	if !ok {
		return fmt.Errorf("unknown parameter: %s", name)
	}
	return set(cfg, v)
}

func ListParams() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
