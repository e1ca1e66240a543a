package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/metrics"
	"github.com/san-kum/spinsim/internal/micromag"
	"github.com/san-kum/spinsim/internal/storage"
)

var ErrNotSetup = errors.New("experiment: not set up")

// Experiment builds a Simulation from a Config and samples its trajectory.
type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *zap.Logger

	mesh    *mesh.Mesh
	sim     *micromag.Simulation
	metrics []micromag.Metric
}

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) {
		if r != nil {
			e.registry = r
		}
	}
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup validates the configuration and builds the mesh, simulation,
// interactions, temperature and initial magnetisation.
func (e *Experiment) Setup() error {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	m, err := mesh.New(cfg.Mesh.Config())
	if err != nil {
		return err
	}

	sim := micromag.New(m,
		micromag.WithLogger(e.logger),
		micromag.WithMaterial(cfg.Material),
		micromag.WithIntegratorOptions(cfg.Integrator),
		micromag.WithSeed(cfg.Seed),
	)

	for _, ic := range cfg.Interactions {
		it, err := e.registry.GetInteraction(ic)
		if err != nil {
			return err
		}
		if err := sim.Add(it); err != nil {
			return err
		}
	}

	if err := sim.SetTemperature(micromag.Constant(cfg.Temperature)); err != nil {
		return err
	}

	src := micromag.Uniform(cfg.M0[0], cfg.M0[1], cfg.M0[2])
	if cfg.Run.Restore != "" {
		buf, err := storage.ReadSpinFile(cfg.Run.Restore)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		src = micromag.Buffer(buf)
	}
	if err := sim.SetM(src, true); err != nil {
		return err
	}

	e.metrics = []micromag.Metric{
		metrics.NewNormDeviation(1e-6),
		metrics.NewEnergyDrift(sim.ComputeEnergy),
		metrics.NewMagnetisation(0),
		metrics.NewMagnetisation(1),
		metrics.NewMagnetisation(2),
	}
	for _, mt := range e.metrics {
		sim.AddMetric(mt)
	}

	e.mesh = m
	e.sim = sim

	e.logger.Info("experiment ready",
		zap.String("name", cfg.Name),
		zap.Int("sites", m.Len()),
		zap.Int("interactions", len(cfg.Interactions)),
		zap.Stringer("mode", sim.Mode()))
	return nil
}

// Simulation is nil until Setup succeeds.
func (e *Experiment) Simulation() *micromag.Simulation { return e.sim }

func (e *Experiment) Config() *config.Config { return e.cfg }

// Result holds the sampled trajectory of a run.
type Result struct {
	Times     []float64
	Averages  []mesh.Vec3
	Energies  []float64
	Metrics   map[string]float64
	Spin      []float64
	FinalTime float64
	Mode      string
	Elapsed   time.Duration
}

func (r *Result) sample(sim *micromag.Simulation) {
	r.Times = append(r.Times, sim.T())
	r.Averages = append(r.Averages, sim.ComputeAverage())
	r.Energies = append(r.Energies, sim.ComputeEnergy())
}

// Run advances through Samples evenly spaced checkpoints up to Duration past
// the current time. The context is checked between checkpoints. On failure
// the partial Result is returned with the error.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.sim == nil {
		return nil, ErrNotSetup
	}

	sim := e.sim
	run := e.cfg.Run
	start := time.Now()
	t0 := sim.T()

	res := &Result{Mode: sim.Mode().String()}
	res.sample(sim)

	var runErr error
	for k := 1; k <= run.Samples; k++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		target := t0 + run.Duration*float64(k)/float64(run.Samples)
		if err := sim.RunUntil(target); err != nil {
			res.sample(sim)
			runErr = err
			break
		}
		res.sample(sim)
	}

	res.FinalTime = sim.T()
	res.Spin = sim.Spin()
	res.Metrics = sim.MetricValues()
	res.Metrics["energy"] = sim.ComputeEnergy()
	res.Elapsed = time.Since(start)

	if runErr != nil {
		e.logger.Warn("run stopped early", zap.Float64("t", res.FinalTime), zap.Error(runErr))
		return res, fmt.Errorf("run %s: %w", e.cfg.Name, runErr)
	}

	e.logger.Info("run complete",
		zap.Float64("t", res.FinalTime),
		zap.Int("samples", len(res.Times)),
		zap.Int("evaluations", sim.Evaluations()),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// Relax minimizes the energy in place with the configured minimizer options.
func (e *Experiment) Relax() (micromag.MinimizeResult, error) {
	if e.sim == nil {
		return micromag.MinimizeResult{}, ErrNotSetup
	}
	mn, err := e.sim.NewMinimizer(e.cfg.Minimizer)
	if err != nil {
		return micromag.MinimizeResult{}, err
	}
	return mn.Relax()
}

func (r *Result) Record() storage.Record {
	return storage.Record{
		Times:    r.Times,
		Averages: r.Averages,
		Energies: r.Energies,
		Spin:     r.Spin,
	}
}

// Metadata describes the run for the store. err, if any, is recorded.
func (e *Experiment) Metadata(r *Result, err error) storage.RunMetadata {
	meta := storage.RunMetadata{
		Name:        e.cfg.Name,
		Seed:        e.cfg.Seed,
		Temperature: e.cfg.Temperature,
		Duration:    e.cfg.Run.Duration,
		Samples:     e.cfg.Run.Samples,
		Mesh:        e.cfg.Mesh.Config(),
	}
	if e.mesh != nil {
		meta.Sites = e.mesh.Len()
	}
	for _, ic := range e.cfg.Interactions {
		meta.Interactions = append(meta.Interactions, ic.Kind)
	}
	if r != nil {
		meta.Mode = r.Mode
		meta.FinalTime = r.FinalTime
		meta.Metrics = r.Metrics
	}
	if err != nil {
		meta.Error = err.Error()
	}
	return meta
}
