package rag

import (
	"fmt"
	"image"
	"sort"

	"github.com/tissuegraph/regionmap/internal/config"
	"github.com/tissuegraph/regionmap/internal/imaging"
)

// Builder constructs a region adjacency graph from an image and its
// label map.
type Builder struct {
	connectivity int
	bins         int
	strategy     Strategy
}

// NewBuilder creates a builder with the given adjacency order (1 for
// orthogonal neighbors, 2 to add diagonals), histogram resolution, and
// edge weighting strategy.
func NewBuilder(connectivity, bins int, strategy Strategy) *Builder {
	return &Builder{connectivity: connectivity, bins: bins, strategy: strategy}
}

// Build accumulates per-region statistics and adjacency in one pass over
// the pixels, then derives node features and edge weights.
//
// Pixels labeled 0 contribute nothing: they form no node and no
// adjacency. Edge creation order is the raster-scan order in which each
// adjacent pair is first seen, which fixes the merge tie-break order.
func (b *Builder) Build(img image.Image, labels *imaging.LabelMap) (*Graph, error) {
	bounds := img.Bounds()
	if bounds.Dx() != labels.Width || bounds.Dy() != labels.Height {
		return nil, fmt.Errorf("image is %dx%d but label map is %dx%d",
			bounds.Dx(), bounds.Dy(), labels.Width, labels.Height)
	}

	// First-order adjacency looks east and south; second-order adds the
	// two diagonal directions. Looking only "forward" visits every
	// unordered pixel pair exactly once.
	offsets := [][2]int{{1, 0}, {0, 1}}
	if b.connectivity >= config.ConnectivitySecondOrder {
		offsets = append(offsets, [2]int{1, 1}, [2]int{-1, 1})
	}

	g := NewGraph(b.bins)
	for y := 0; y < labels.Height; y++ {
		for x := 0; x < labels.Width; x++ {
			label := labels.At(x, y)
			if label == 0 {
				continue
			}

			r, gr, bl, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			g.ensureNode(label).accumulate(float64(r>>8), float64(gr>>8), float64(bl>>8))

			for _, off := range offsets {
				nx, ny := x+off[0], y+off[1]
				if nx < 0 || nx >= labels.Width || ny >= labels.Height {
					continue
				}
				neighbor := labels.At(nx, ny)
				if neighbor == 0 || neighbor == label {
					continue
				}
				g.ensureNode(neighbor)
				g.addEdge(label, neighbor)
			}
		}
	}

	for _, id := range g.NodeIDs() {
		if err := g.nodes[id].refresh(g.dividers); err != nil {
			return nil, fmt.Errorf("region %d: %w", id, err)
		}
	}

	// Weights in creation order; the order is cosmetic here (weights are
	// independent) but keeps runs bit-identical.
	edges := make([]*edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].seq < edges[j].seq })
	for _, e := range edges {
		e.weight = b.strategy.Weight(g, e.key.A, e.key.B)
	}

	return g, nil
}
