package optim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/experiment"
)

// Point is one evaluated combination of parameters. Err is set when that
// experiment failed; other points are unaffected.
type Point struct {
	Params  map[string]float64
	Metrics map[string]float64
	Err     error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	limit      int
	logger     *zap.Logger
}

func NewGridSearch(names []string, ranges [][]float64) (*GridSearch, error) {
	if len(names) == 0 || len(names) != len(ranges) {
		return nil, fmt.Errorf("grid search: %d parameters with %d ranges", len(names), len(ranges))
	}
	for i, name := range names {
		if _, ok := params[name]; !ok {
			return nil, fmt.Errorf("unknown parameter: %s", name)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("grid search: empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: names, ranges: ranges, limit: 1, logger: zap.NewNop()}, nil
}

// SetLimit bounds the number of experiments run concurrently.
func (g *GridSearch) SetLimit(n int) {
	if n > 0 {
		g.limit = n
	}
}

func (g *GridSearch) SetLogger(l *zap.Logger) {
	if l != nil {
		g.logger = l
	}
}

// Points enumerates the grid with the last parameter varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.collect(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		g.collect(depth+1, next, out)
	}
}

// Search runs one experiment per grid point on a copy of base. Results are
// returned in the order of Points. Only cancellation of ctx aborts the
// search.
func (g *GridSearch) Search(ctx context.Context, base *config.Config) ([]Point, error) {
	points := g.Points()
	results := make([]Point, len(points))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.limit)

	for i, p := range points {
		i, p := i, p
		results[i].Params = p
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			metrics, err := g.evaluate(egCtx, base, p)
			results[i].Metrics = metrics
			results[i].Err = err
			if err != nil {
				g.logger.Warn("grid point failed", zap.Any("params", p), zap.Error(err))
			}
			return egCtx.Err()
		})
	}

	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, p map[string]float64) (map[string]float64, error) {
	cfg := base.Clone()
	for _, name := range g.paramNames {
		if err := Apply(cfg, name, p[name]); err != nil {
			return nil, err
		}
	}

	exp := experiment.New(cfg, experiment.WithLogger(g.logger))
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	res, err := exp.Run(ctx)
	if res == nil {
		return nil, err
	}
	return res.Metrics, err
}

// Best returns the successful point with the smallest value of metric.
func Best(points []Point, metric string) (Point, bool) {
	best := math.Inf(1)
	var out Point
	found := false
	for _, p := range points {
		if p.Err != nil {
			continue
		}
		v, ok := p.Metrics[metric]
		if !ok || math.IsNaN(v) {
			continue
		}
		if !found || v < best {
			best, out, found = v, p, true
		}
	}
	return out, found
}
