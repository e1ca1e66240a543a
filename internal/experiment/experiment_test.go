package experiment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/micromag"
	"github.com/san-kum/spinsim/internal/storage"
)

func shortRun(name string) *config.Config {
	cfg := config.GetPreset(name)
	cfg.Run.Duration = 1e-12
	cfg.Run.Samples = 5
	return cfg
}

func TestRegistryKinds(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"anisotropy", "demag", "exchange", "zeeman"}, r.ListInteractions())

	_, err := r.GetInteraction(config.InteractionConfig{Kind: "dmi"})
	assert.Error(t, err)

	_, err = r.GetInteraction(config.InteractionConfig{Kind: "anisotropy", D: 1})
	assert.Error(t, err)

	it, err := r.GetInteraction(config.InteractionConfig{Kind: "exchange", J: 1})
	require.NoError(t, err)
	assert.Equal(t, "exchange", it.Name())
}

func TestRunSamplesTrajectory(t *testing.T) {
	exp := New(shortRun("damped"))
	require.NoError(t, exp.Setup())
	assert.Equal(t, micromag.ModeDeterministic, exp.Simulation().Mode())

	res, err := exp.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Times, 6)
	require.Len(t, res.Averages, 6)
	require.Len(t, res.Energies, 6)
	assert.Equal(t, 0.0, res.Times[0])
	assert.InDelta(t, 1e-12, res.FinalTime, 1e-24)
	assert.Equal(t, "deterministic", res.Mode)
	assert.Len(t, res.Spin, 9)

	// precession about +y starting from +z
	assert.Greater(t, res.Averages[5][0], 0.0)
	assert.Less(t, res.Averages[5][2], 1.0)

	for _, key := range []string{"norm_deviation", "energy_drift", "mx", "my", "mz", "energy"} {
		assert.Contains(t, res.Metrics, key)
	}
	assert.Less(t, res.Metrics["norm_deviation"], 1e-4)
}

func TestRunStochasticPreset(t *testing.T) {
	cfg := config.GetPreset("thermal")
	cfg.Run.Duration = 2e-15
	cfg.Run.Samples = 2

	exp := New(cfg)
	require.NoError(t, exp.Setup())
	assert.Equal(t, micromag.ModeStochastic, exp.Simulation().Mode())

	res, err := exp.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Times, 3)
	assert.Equal(t, 2e-15, res.FinalTime)
}

func TestRunRespectsCancellation(t *testing.T) {
	exp := New(shortRun("damped"))
	require.NoError(t, exp.Setup())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := exp.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Len(t, res.Times, 1)
	assert.Equal(t, 0.0, res.FinalTime)
}

func TestRunBeforeSetup(t *testing.T) {
	_, err := New(config.DefaultConfig()).Run(context.Background())
	assert.ErrorIs(t, err, ErrNotSetup)

	_, err = New(config.DefaultConfig()).Relax()
	assert.ErrorIs(t, err, ErrNotSetup)
}

func TestSetupRejectsUnknownInteraction(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Interactions = []config.InteractionConfig{{Kind: "unknown"}}
	assert.Error(t, New(cfg).Setup())
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mesh.Nx = 0
	assert.ErrorIs(t, New(cfg).Setup(), config.ErrInvalid)
}

func TestSetupRestoresSpin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	// three sites: +x, +y, +z (component-major)
	require.NoError(t, storage.WriteSpin(f, []float64{2, 0, 0, 0, 2, 0, 0, 0, 2}))
	require.NoError(t, f.Close())

	cfg := config.GetPreset("damped")
	cfg.Run.Restore = path

	exp := New(cfg)
	require.NoError(t, exp.Setup())

	sim := exp.Simulation()
	assert.Equal(t, mesh.Vec3{1, 0, 0}, sim.SpinAt(0, 0, 0))
	assert.Equal(t, mesh.Vec3{0, 1, 0}, sim.SpinAt(1, 0, 0))
	assert.Equal(t, mesh.Vec3{0, 0, 1}, sim.SpinAt(2, 0, 0))
}

func TestSetupRestoreWrongSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, storage.WriteSpin(f, []float64{0, 0, 1}))
	require.NoError(t, f.Close())

	cfg := config.GetPreset("damped")
	cfg.Run.Restore = path
	assert.ErrorIs(t, New(cfg).Setup(), micromag.ErrConfiguration)
}

func TestRelaxAlignsWithField(t *testing.T) {
	cfg := config.GetPreset("precession")
	cfg.Minimizer = micromag.MinimizerOptions{TauMin: 1e-3, TauMax: 1, StopDm: 1e-10, MaxSteps: 1000}

	exp := New(cfg)
	require.NoError(t, exp.Setup())

	res, err := exp.Relax()
	require.NoError(t, err)
	assert.InDelta(t, -1, res.Energy, 1e-8)
	assert.InDelta(t, 1, exp.Simulation().ComputeAverage()[2], 1e-8)
}

func TestMetadata(t *testing.T) {
	exp := New(shortRun("chain"))
	require.NoError(t, exp.Setup())

	res, err := exp.Run(context.Background())
	require.NoError(t, err)

	meta := exp.Metadata(res, nil)
	assert.Equal(t, "chain", meta.Name)
	assert.Equal(t, 10, meta.Sites)
	assert.Equal(t, 10, meta.Mesh.Nx)
	assert.Equal(t, []string{"exchange", "zeeman", "demag"}, meta.Interactions)
	assert.Equal(t, res.FinalTime, meta.FinalTime)
	assert.Empty(t, meta.Error)

	rec := res.Record()
	assert.Equal(t, res.Times, rec.Times)
	assert.Equal(t, res.Spin, rec.Spin)
}
