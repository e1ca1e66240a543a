package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/spinsim/internal/analysis"
	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/experiment"
	"github.com/san-kum/spinsim/internal/mesh"
	"github.com/san-kum/spinsim/internal/optim"
	"github.com/san-kum/spinsim/internal/storage"
	"github.com/san-kum/spinsim/internal/store"
)

var (
	dataDir  string
	logLevel string
	logger   *zap.Logger
	envCfg   config.Env

	configFile  string
	duration    float64
	samples     int
	temperature float64
	alpha       float64
	seed        int64
	restore     string
	outFile     string

	sweepParam  string
	sweepValues string
	sweepMetric string
	jobs        int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "spinsim",
		Short:        "atomistic spin dynamics",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e, err := config.LoadEnv()
			if err != nil {
				return err
			}
			envCfg = e
			if !cmd.Flags().Changed("data") {
				dataDir = e.DataDir
			}
			if !cmd.Flags().Changed("log-level") {
				logLevel = e.LogLevel
			}

			level, err := zapcore.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			zc := zap.NewProductionConfig()
			zc.Level = zap.NewAtomicLevelAt(level)
			zc.Encoding = "console"
			logger, err = zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "integrate the LLG equation and store the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	configFlags(runCmd)
	runCmd.Flags().StringVar(&restore, "restore", "", "initial spin file (m.bin)")

	relaxCmd := &cobra.Command{
		Use:   "relax [preset]",
		Short: "minimise the energy by steepest descent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  relax,
	}
	configFlags(relaxCmd)
	relaxCmd.Flags().StringVar(&restore, "restore", "", "initial spin file (m.bin)")
	relaxCmd.Flags().StringVar(&outFile, "out", "", "write the relaxed state as JSON")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run one experiment per parameter value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweep,
	}
	configFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "alpha", "parameter to sweep ("+strings.Join(optim.ListParams(), ", ")+")")
	sweepCmd.Flags().StringVar(&sweepValues, "values", "", "comma separated values")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "energy", "metric to minimise")
	sweepCmd.Flags().IntVar(&jobs, "jobs", 1, "concurrent experiments")
	_ = sweepCmd.MarkFlagRequired("values")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of the average magnetisation",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export the final spin configuration as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&outFile, "out", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %s %s\n", labelStyle.Render(name), dimStyle.Render(describe(p)))
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, relaxCmd, sweepCmd, listCmd, showCmd, analyzeCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated time in seconds")
	cmd.Flags().IntVar(&samples, "samples", config.DefaultSamples, "number of checkpoints")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "temperature in K")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.1, "Gilbert damping")
	cmd.Flags().Int64Var(&seed, "seed", 0, "thermal noise seed")
}

// resolveConfig layers preset, config file, environment and flags in that
// order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	cfg.ApplyEnv(envCfg)

	flags := cmd.Flags()
	if flags.Changed("time") {
		cfg.Run.Duration = duration
	}
	if flags.Changed("samples") {
		cfg.Run.Samples = samples
	}
	if flags.Changed("temperature") {
		cfg.Temperature = temperature
	}
	if flags.Changed("alpha") {
		cfg.Material.Alpha = alpha
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("restore") {
		cfg.Run.Restore = restore
	}

	return cfg, cfg.Validate()
}

func setup(cmd *cobra.Command, args []string) (*experiment.Experiment, error) {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	exp := experiment.New(cfg, experiment.WithLogger(logger))
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := exp.Config()
	fmt.Println(titleStyle.Render(fmt.Sprintf("running %s (%s)", cfg.Name, exp.Simulation().Mode())))

	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}

	runID, err := st.Save(exp.Metadata(result, runErr), result.Record())
	if err != nil {
		return err
	}

	printResult(runID, result)
	return runErr
}

func relax(cmd *cobra.Command, args []string) error {
	exp, err := setup(cmd, args)
	if err != nil {
		return err
	}

	res, relaxErr := exp.Relax()
	sim := exp.Simulation()

	fmt.Println(titleStyle.Render("relaxation " + exp.Config().Name))
	printField("steps", strconv.Itoa(res.Steps))
	printField("max dm", fmt.Sprintf("%.3e", res.MaxDm))
	printField("energy", fmt.Sprintf("%.6e J", res.Energy))
	printField("<m>", formatVec(sim.ComputeAverage()))

	if outFile != "" {
		snap := store.NewSnapshot(sim.Mesh(), sim.Spin(), sim.T())
		snap.Name = exp.Config().Name
		snap.Metrics = map[string]float64{"energy": res.Energy, "max_dm": res.MaxDm}
		if err := store.ExportJSON(outFile, snap); err != nil {
			return err
		}
		printField("written", outFile)
	}
	return relaxErr
}

func sweep(cmd *cobra.Command, args []string) error {
	values, err := parseValues(sweepValues)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	g, err := optim.NewGridSearch([]string{sweepParam}, [][]float64{values})
	if err != nil {
		return err
	}
	g.SetLimit(jobs)
	g.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	points, err := g.Search(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("sweep %s over %s", cfg.Name, sweepParam)))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\tSTATUS\n", strings.ToUpper(sweepParam), strings.ToUpper(sweepMetric))
	for _, p := range points {
		status := "ok"
		if p.Err != nil {
			status = p.Err.Error()
		}
		fmt.Fprintf(w, "%g\t%.6e\t%s\n", p.Params[sweepParam], p.Metrics[sweepMetric], status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best, ok := optim.Best(points, sweepMetric); ok {
		printField("best", fmt.Sprintf("%s=%g (%s=%.6e)", sweepParam, best.Params[sweepParam], sweepMetric, best.Metrics[sweepMetric]))
	}
	return nil
}

func parseValues(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", field, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no values to sweep")
	}
	return out, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tMODE\tSITES\tT(K)\tFINAL")

	for _, run := range runs {
		final := fmt.Sprintf("%.3e s", run.FinalTime)
		if run.Error != "" {
			final += " (failed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%g\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Mode,
			run.Sites,
			run.Temperature,
			final,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rec, err := st.LoadAverages(args[0])
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("run " + meta.ID))
	printField("name", meta.Name)
	printField("mode", meta.Mode)
	printField("sites", strconv.Itoa(meta.Sites))
	printField("terms", strings.Join(meta.Interactions, ", "))
	printField("final t", fmt.Sprintf("%.6e s", meta.FinalTime))
	if meta.Error != "" {
		printField("error", errStyle.Render(meta.Error))
	}
	if n := len(rec.Averages); n > 0 {
		printField("<m> start", formatVec(rec.Averages[0]))
		printField("<m> end", formatVec(rec.Averages[n-1]))
	}
	printMetrics(meta.Metrics)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	rec, err := st.LoadAverages(args[0])
	if err != nil {
		return err
	}
	dt, err := analysis.UniformStep(rec.Times)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("spectrum " + args[0]))
	printField("samples", strconv.Itoa(len(rec.Times)))
	printField("spacing", fmt.Sprintf("%.3e s", dt))

	for a, name := range []string{"<mx>", "<my>", "<mz>"} {
		series := make([]float64, len(rec.Averages))
		for i, v := range rec.Averages {
			series[i] = v[a]
		}
		f, err := analysis.DominantFrequency(series, dt)
		if err != nil {
			return err
		}
		printField(name, fmt.Sprintf("%.4f GHz", f/1e9))
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	spin, err := st.LoadSpin(runID)
	if err != nil {
		return err
	}
	m, err := mesh.New(meta.Mesh)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	if len(spin) != 3*m.Len() {
		return fmt.Errorf("run %s: %w", runID, storage.ErrCorruptSpin)
	}

	snap := store.NewSnapshot(m, spin, meta.FinalTime)
	snap.Name = meta.Name
	snap.Metrics = meta.Metrics

	if outFile == "" {
		return store.ExportJSONStdout(snap)
	}
	if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return err
	}
	return store.ExportJSON(outFile, snap)
}
