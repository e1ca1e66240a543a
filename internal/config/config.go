package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
)

const (
	DefaultDuration = 1e-11
	DefaultSamples  = 100
	DefaultDataDir  = ".spinsim"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Name         string                     `yaml:"name"`
	Mesh         MeshConfig                 `yaml:"mesh"`
	Material     micromag.Material          `yaml:"material"`
	Temperature  float64                    `yaml:"temperature"`
	M0           mesh.Vec3                  `yaml:"m0"`
	Interactions []InteractionConfig        `yaml:"interactions"`
	Integrator   micromag.IntegratorOptions `yaml:"integrator"`
	Minimizer    micromag.MinimizerOptions  `yaml:"minimizer"`
	Run          RunConfig                  `yaml:"run"`
	Seed         int64                      `yaml:"seed"`
}

type MeshConfig struct {
	Nx         int     `yaml:"nx"`
	Ny         int     `yaml:"ny"`
	Nz         int     `yaml:"nz"`
	Dx         float64 `yaml:"dx"`
	Dy         float64 `yaml:"dy"`
	Dz         float64 `yaml:"dz"`
	UnitLength float64 `yaml:"unit_length"`
	PBC        bool    `yaml:"pbc"`
}

// InteractionConfig describes one field term. Which fields apply depends on
// Kind: H for zeeman, J for exchange, D and Axis for anisotropy.
type InteractionConfig struct {
	Kind string    `yaml:"kind"`
	H    mesh.Vec3 `yaml:"h,omitempty"`
	J    float64   `yaml:"j,omitempty"`
	D    float64   `yaml:"d,omitempty"`
	Axis mesh.Vec3 `yaml:"axis,omitempty"`
}

type RunConfig struct {
	Duration float64 `yaml:"duration"`
	Samples  int     `yaml:"samples"`

	// Restore names a spin file whose contents replace M0.
	Restore string `yaml:"restore,omitempty"`
}

// Env is the environment overlay applied on top of file and preset values.
type Env struct {
	DataDir  string `env:"SPINSIM_DATA_DIR" envDefault:".spinsim"`
	Seed     *int64 `env:"SPINSIM_SEED"`
	LogLevel string `env:"SPINSIM_LOG_LEVEL" envDefault:"info"`
}

func (m MeshConfig) Config() mesh.Config {
	return mesh.Config{
		Nx: m.Nx, Ny: m.Ny, Nz: m.Nz,
		Dx: m.Dx, Dy: m.Dy, Dz: m.Dz,
		UnitLength: m.UnitLength,
		PBC:        m.PBC,
	}
}

func DefaultConfig() *Config {
	return &Config{
		Name: "default",
		Mesh: MeshConfig{Nx: 1, Ny: 1, Nz: 1, Dx: 1, Dy: 1, Dz: 1, UnitLength: 1e-9},
		Material: micromag.Material{
			Gamma: 1.76e11,
			Alpha: 0.1,
			MuS:   1,
		},
		M0:         mesh.Vec3{1, 0, 0},
		Integrator: micromag.DefaultIntegratorOptions(),
		Minimizer:  micromag.DefaultMinimizerOptions(),
		Run: RunConfig{
			Duration: DefaultDuration,
			Samples:  DefaultSamples,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver decodes path on top of a copy of base. Keys absent from the file
// keep the base values; lists are replaced wholesale.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadEnv reads the SPINSIM_* variables.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// ApplyEnv overrides values the environment sets explicitly.
func (c *Config) ApplyEnv(e Env) {
	if e.Seed != nil {
		c.Seed = *e.Seed
	}
}

func (c *Config) Validate() error {
	if _, err := mesh.New(c.Mesh.Config()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Material.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Integrator.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Minimizer.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Temperature < 0 {
		return fmt.Errorf("%w: negative temperature %g", ErrInvalid, c.Temperature)
	}
	if c.M0 == (mesh.Vec3{}) && c.Run.Restore == "" {
		return fmt.Errorf("%w: initial magnetisation is zero", ErrInvalid)
	}
	if c.Run.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalid)
	}
	if c.Run.Samples <= 0 {
		return fmt.Errorf("%w: samples must be positive", ErrInvalid)
	}
	for i, ic := range c.Interactions {
		if ic.Kind == "" {
			return fmt.Errorf("%w: interaction %d has no kind", ErrInvalid, i)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Interactions = append([]InteractionConfig(nil), c.Interactions...)
	return &out
}
