package rag

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/tissuegraph/regionmap/internal/config"
)

// Strategy defines how a merger flavor scores and folds regions.
//
// Weight must be a pure function of the two endpoint nodes' current
// statistics. OnMerge folds src's statistics into dst; it must be
// associative and commutative in the aggregated statistics so that the
// merge order never changes a region's final features.
type Strategy interface {
	Weight(g *Graph, a, b int) float64
	OnMerge(g *Graph, src, dst int) error
}

// Factory constructs a strategy from the configuration bundle.
type Factory func(cfg *config.Config) Strategy

var strategies = map[string]Factory{}

// RegisterStrategy adds a merger flavor under a configuration key.
// Registering a duplicate key panics: flavors are wired at package init
// and a collision is a programming error.
func RegisterStrategy(name string, f Factory) {
	if _, ok := strategies[name]; ok {
		panic(fmt.Sprintf("rag: strategy %q registered twice", name))
	}
	strategies[name] = f
}

// NewStrategy resolves a configured strategy name. Unknown names are a
// configuration error, reported with the known keys.
func NewStrategy(name string, cfg *config.Config) (Strategy, error) {
	f, ok := strategies[name]
	if !ok {
		known := make([]string, 0, len(strategies))
		for k := range strategies {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("%w: unknown merge strategy %q (have %v)", config.ErrConfiguration, name, known)
	}
	return f(cfg), nil
}

func init() {
	RegisterStrategy("color", func(cfg *config.Config) Strategy {
		return &ColorStrategy{
			WHist: cfg.Merger.WHist,
			WMean: cfg.Merger.WMean,
		}
	})
}

// ColorStrategy scores region dissimilarity from color statistics alone:
// a weighted sum of the mean per-channel histogram distance and the
// mean-color distance. Both terms compare L2-normalized vectors, so each
// raw distance lies in [0, 2] and is halved into [0, 1].
type ColorStrategy struct {
	WHist float64
	WMean float64
}

// Weight implements Strategy.
func (s *ColorStrategy) Weight(g *Graph, a, b int) float64 {
	na, nb := g.Node(a), g.Node(b)

	diffMean := vectorDistance(na.Mean[:], nb.Mean[:]) / 2

	var diffHist float64
	for c := 0; c < channels; c++ {
		diffHist += vectorDistance(na.Hist[c], nb.Hist[c]) / 2
	}
	diffHist /= channels

	return s.WHist*diffHist + s.WMean*diffMean
}

// OnMerge folds src's statistics into dst and rederives dst's features:
// pixel count and channel sums add, the sample buffers concatenate, and
// the mean and histograms are recomputed from the combined data.
func (s *ColorStrategy) OnMerge(g *Graph, src, dst int) error {
	ns, nd := g.Node(src), g.Node(dst)
	if ns.N == 0 || nd.N == 0 {
		return fmt.Errorf("merging %d into %d: %w", src, dst, ErrDegenerateRegion)
	}

	nd.N += ns.N
	floats.Add(nd.Sum[:], ns.Sum[:])
	for c := 0; c < channels; c++ {
		nd.Samples[c] = append(nd.Samples[c], ns.Samples[c]...)
	}
	return nd.refresh(g.dividers)
}

// vectorDistance is the Euclidean distance between two equal-length
// vectors.
func vectorDistance(a, b []float64) float64 {
	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	return floats.Norm(diff, 2)
}
