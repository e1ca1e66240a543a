package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/experiment"
	"github.com/san-kum/spinsim/internal/mesh"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

func printField(label, value string) {
	fmt.Println(labelStyle.Render(label) + valueStyle.Render(value))
}

func formatVec(v mesh.Vec3) string {
	return fmt.Sprintf("(%+.6f, %+.6f, %+.6f)", v[0], v[1], v[2])
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	for _, name := range names {
		printField(name, fmt.Sprintf("%.6e", metrics[name]))
	}
}

func printResult(runID string, r *experiment.Result) {
	printField("run id", runID)
	printField("final t", fmt.Sprintf("%.6e s", r.FinalTime))
	printField("samples", fmt.Sprint(len(r.Times)))
	printField("elapsed", r.Elapsed.String())
	if n := len(r.Averages); n > 0 {
		printField("<m>", formatVec(r.Averages[n-1]))
	}
	printMetrics(r.Metrics)
}

func describe(cfg *config.Config) string {
	m := cfg.Mesh
	return fmt.Sprintf("%dx%dx%d, %d terms, T=%gK, %gs", m.Nx, m.Ny, m.Nz, len(cfg.Interactions), cfg.Temperature, cfg.Run.Duration)
}
