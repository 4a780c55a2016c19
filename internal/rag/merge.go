package rag

import (
	"container/heap"
	"fmt"

	"github.com/tissuegraph/regionmap/internal/imaging"
)

// Merger collapses a region adjacency graph hierarchically: while the
// cheapest edge weight is below the threshold, the edge's two regions
// become one. The higher-numbered region is absorbed into the
// lower-numbered one, which keeps the src/dst orientation deterministic.
type Merger struct {
	threshold float64
	strategy  Strategy
}

// NewMerger creates a merger with the given stop threshold and strategy.
func NewMerger(threshold float64, strategy Strategy) *Merger {
	return &Merger{threshold: threshold, strategy: strategy}
}

// candidate is a heap entry proposing an edge merge. Entries are lazily
// invalidated: a popped candidate whose edge has vanished or whose
// weight no longer matches the edge's current weight is skipped.
type candidate struct {
	weight float64
	seq    int64
	a, b   int
}

// candidateHeap orders candidates by weight, then by edge creation
// sequence so that ties go to the earliest-created edge.
type candidateHeap []candidate

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	return h[i].seq < h[j].seq
}
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Merge runs the agglomeration to completion and returns a new label map
// in which every pixel carries its final region's identifier, compacted
// to contiguous ids starting at 1 with label 0 preserved.
//
// The graph is consumed: after Merge it holds only the surviving nodes.
func (m *Merger) Merge(g *Graph, labels *imaging.LabelMap) (*imaging.LabelMap, error) {
	h := make(candidateHeap, 0, len(g.edges))
	for _, e := range g.edges {
		h = append(h, candidate{weight: e.weight, seq: e.seq, a: e.key.A, b: e.key.B})
	}
	heap.Init(&h)

	// owner records every absorption; resolve chases it to the final id.
	owner := make(map[int]int)

	for g.NodeCount() > 1 && h.Len() > 0 {
		c := heap.Pop(&h).(candidate)

		e, ok := g.edges[makeEdgeKey(c.a, c.b)]
		if !ok || e.weight != c.weight || e.seq != c.seq {
			continue // stale candidate
		}
		if c.weight >= m.threshold {
			break // cheapest live edge is not cheap enough
		}

		src, dst := c.a, c.b
		if src < dst {
			src, dst = dst, src
		}
		if err := m.mergeInto(g, src, dst, &h); err != nil {
			return nil, err
		}
		owner[src] = dst
	}

	resolve := func(id int) int {
		for {
			next, ok := owner[id]
			if !ok {
				return id
			}
			// Path compression keeps repeated lookups cheap.
			if final, ok := owner[next]; ok {
				owner[id] = final
			}
			id = next
		}
	}

	merged := labels.Clone()
	for i, v := range merged.Pix {
		if v != 0 {
			merged.Pix[i] = resolve(v)
		}
	}
	merged.Compact()
	return merged, nil
}

// mergeInto absorbs src into dst: statistics fold through the strategy,
// src's edges re-target to dst (dropping duplicates), and every edge now
// incident to dst is re-weighted and re-proposed.
func (m *Merger) mergeInto(g *Graph, src, dst int, h *candidateHeap) error {
	if err := m.strategy.OnMerge(g, src, dst); err != nil {
		return err
	}

	g.removeEdge(src, dst)
	for _, n := range g.Neighbors(src) {
		if g.HasEdge(dst, n) {
			// The boundary is already represented by (dst, n).
			g.removeEdge(src, n)
		} else {
			g.retargetEdge(src, n, dst)
		}
	}
	g.removeNode(src)

	for _, n := range g.Neighbors(dst) {
		e, ok := g.edges[makeEdgeKey(dst, n)]
		if !ok {
			return fmt.Errorf("edge (%d,%d) missing after retarget", dst, n)
		}
		e.weight = m.strategy.Weight(g, dst, n)
		heap.Push(h, candidate{weight: e.weight, seq: e.seq, a: e.key.A, b: e.key.B})
	}
	return nil
}
