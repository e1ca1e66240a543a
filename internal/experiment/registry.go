package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/interactions"
	"github.com/san-kum/spinsim/internal/micromag"
)

// InteractionFactory builds a field term from its configuration.
type InteractionFactory func(ic config.InteractionConfig) (micromag.Interaction, error)

type Registry struct {
	interactions map[string]InteractionFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		interactions: make(map[string]InteractionFactory),
	}

	r.interactions["zeeman"] = func(ic config.InteractionConfig) (micromag.Interaction, error) {
		return interactions.NewZeeman(ic.H), nil
	}
	r.interactions["exchange"] = func(ic config.InteractionConfig) (micromag.Interaction, error) {
		return interactions.NewExchange(ic.J), nil
	}
	r.interactions["anisotropy"] = func(ic config.InteractionConfig) (micromag.Interaction, error) {
		axis := ic.Axis
		if axis[0] == 0 && axis[1] == 0 && axis[2] == 0 {
			return nil, fmt.Errorf("anisotropy needs a non-zero axis")
		}
		return interactions.NewAnisotropy(ic.D, axis), nil
	}
	r.interactions["demag"] = func(config.InteractionConfig) (micromag.Interaction, error) {
		return interactions.NewDemag(), nil
	}

	return r
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, f InteractionFactory) {
	r.interactions[kind] = f
}

func (r *Registry) GetInteraction(ic config.InteractionConfig) (micromag.Interaction, error) {
	fn, ok := r.interactions[ic.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown interaction: %s", ic.Kind)
	}
	it, err := fn(ic)
	if err != nil {
		return nil, fmt.Errorf("interaction %s: %w", ic.Kind, err)
	}
	return it, nil
}

func (r *Registry) ListInteractions() []string {
	names := make([]string, 0, len(r.interactions))
	for name := range r.interactions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
