package config

import (
	"sort"

	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
)

var iron = micromag.Material{Gamma: 1.76e11, Alpha: 0.1, MuS: 2.2 * 9.274e-24}

var Presets = map[string]*Config{
	"precession": {
		Name:         "precession",
		Mesh:         MeshConfig{Nx: 1, Ny: 1, Nz: 1, Dx: 1, Dy: 1, Dz: 1, UnitLength: 1e-9},
		Material:     micromag.Material{Gamma: 1.76e11, Alpha: 0, MuS: 1},
		M0:           mesh.Vec3{1, 0, 0},
		Interactions: []InteractionConfig{{Kind: "zeeman", H: mesh.Vec3{0, 0, 1}}},
		Integrator:   micromag.DefaultIntegratorOptions(),
		Minimizer:    micromag.DefaultMinimizerOptions(),
		Run:          RunConfig{Duration: 1e-10, Samples: 200},
	},
	"damped": {
		Name:         "damped",
		Mesh:         MeshConfig{Nx: 3, Ny: 1, Nz: 1, Dx: 1, Dy: 1, Dz: 1, UnitLength: 1e-9},
		Material:     micromag.Material{Gamma: 1.76e11, Alpha: 0.1, MuS: 1},
		M0:           mesh.Vec3{0, 0, 1},
		Interactions: []InteractionConfig{{Kind: "zeeman", H: mesh.Vec3{0, 1, 0}}},
		Integrator:   micromag.DefaultIntegratorOptions(),
		Minimizer:    micromag.DefaultMinimizerOptions(),
		Run:          RunConfig{Duration: 5e-10, Samples: 100},
	},
	"thermal": {
		Name:        "thermal",
		Mesh:        MeshConfig{Nx: 4, Ny: 4, Nz: 1, Dx: 1, Dy: 1, Dz: 1, UnitLength: 2.5e-10},
		Material:    iron,
		Temperature: 300,
		M0:          mesh.Vec3{0, 0, 1},
		Interactions: []InteractionConfig{
			{Kind: "exchange", J: 1.2e-21},
			{Kind: "anisotropy", D: 1e-23, Axis: mesh.Vec3{0, 0, 1}},
		},
		Integrator: micromag.DefaultIntegratorOptions(),
		Minimizer:  micromag.DefaultMinimizerOptions(),
		Run:        RunConfig{Duration: 1e-13, Samples: 50},
		Seed:       1,
	},
	"chain": {
		Name:     "chain",
		Mesh:     MeshConfig{Nx: 10, Ny: 1, Nz: 1, Dx: 1, Dy: 1, Dz: 1, UnitLength: 2.5e-10},
		Material: iron,
		M0:       mesh.Vec3{1, 0, 1},
		Interactions: []InteractionConfig{
			{Kind: "exchange", J: 1.2e-21},
			{Kind: "zeeman", H: mesh.Vec3{0, 0, 1}},
			{Kind: "demag"},
		},
		Integrator: micromag.DefaultIntegratorOptions(),
		Minimizer:  micromag.DefaultMinimizerOptions(),
		Run:        RunConfig{Duration: 1e-11, Samples: 100},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
