package rag

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerateRegion reports a region whose pixel count reached zero
// during bookkeeping. Construction prevents this; seeing it means an
// internal invariant broke, and the whole image's processing aborts.
var ErrDegenerateRegion = errors.New("region has zero pixels")

// channels is the number of color channels tracked per region.
const channels = 3

// Node carries the running statistics of one region.
type Node struct {
	// ID is the region identifier from the label map.
	ID int

	// N is the number of pixels currently owned by the region,
	// including pixels absorbed through merges.
	N int

	// Sum accumulates per-channel value sums for the mean color.
	Sum [channels]float64

	// Samples buffers every pixel's channel values; histograms are
	// recomputed from it after each merge.
	Samples [channels][]float64

	// Mean is the region's L2-normalized mean color.
	Mean [channels]float64

	// Hist holds one L2-normalized fixed-bin histogram per channel.
	Hist [channels][]float64
}

// edgeKey identifies an undirected edge; A is always the smaller id.
type edgeKey struct {
	A, B int
}

func makeEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{A: a, B: b}
}

// edge carries the dissimilarity weight between two adjacent regions and
// the sequence number of its creation, used to break weight ties.
type edge struct {
	key    edgeKey
	weight float64
	seq    int64
}

// Graph is a mutable region adjacency graph.
//
// A Graph belongs to a single image's processing run and must not be
// used concurrently.
type Graph struct {
	nodes    map[int]*Node
	adj      map[int]map[int]*edge
	edges    map[edgeKey]*edge
	nextSeq  int64
	dividers []float64
}

// NewGraph creates an empty graph whose histograms use the given number
// of bins over the 8-bit channel range [0, 256).
func NewGraph(bins int) *Graph {
	dividers := make([]float64, bins+1)
	for i := range dividers {
		dividers[i] = float64(i) * 256.0 / float64(bins)
	}
	return &Graph{
		nodes:    make(map[int]*Node),
		adj:      make(map[int]map[int]*edge),
		edges:    make(map[edgeKey]*edge),
		dividers: dividers,
	}
}

// Node returns the node for a region id, or nil if it is not alive.
func (g *Graph) Node(id int) *Node {
	return g.nodes[id]
}

// NodeCount returns the number of alive regions.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of adjacency edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// NodeIDs returns the alive region identifiers in ascending order.
func (g *Graph) NodeIDs() []int {
	ids := make([]int, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Neighbors returns the ids adjacent to a region, in ascending order.
func (g *Graph) Neighbors(id int) []int {
	ids := make([]int, 0, len(g.adj[id]))
	for n := range g.adj[id] {
		ids = append(ids, n)
	}
	sort.Ints(ids)
	return ids
}

// HasEdge reports whether regions a and b are adjacent.
func (g *Graph) HasEdge(a, b int) bool {
	_, ok := g.edges[makeEdgeKey(a, b)]
	return ok
}

// Weight returns the dissimilarity on edge (a, b). The edge must exist.
func (g *Graph) Weight(a, b int) (float64, bool) {
	e, ok := g.edges[makeEdgeKey(a, b)]
	if !ok {
		return 0, false
	}
	return e.weight, true
}

// ensureNode returns the node for id, creating it if necessary.
func (g *Graph) ensureNode(id int) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &Node{ID: id}
	g.nodes[id] = n
	g.adj[id] = make(map[int]*edge)
	return n
}

// addEdge records adjacency between a and b, assigning the next creation
// sequence number. Re-adding an existing edge is a no-op.
func (g *Graph) addEdge(a, b int) {
	key := makeEdgeKey(a, b)
	if _, ok := g.edges[key]; ok {
		return
	}
	e := &edge{key: key, seq: g.nextSeq}
	g.nextSeq++
	g.edges[key] = e
	g.adj[a][b] = e
	g.adj[b][a] = e
}

// removeEdge drops the edge between a and b if present.
func (g *Graph) removeEdge(a, b int) {
	key := makeEdgeKey(a, b)
	if _, ok := g.edges[key]; !ok {
		return
	}
	delete(g.edges, key)
	delete(g.adj[a], b)
	delete(g.adj[b], a)
}

// retargetEdge moves the edge (src, n) to (dst, n), keeping its creation
// sequence number so tie-breaking still reflects the original edge.
func (g *Graph) retargetEdge(src, n, dst int) {
	old := g.edges[makeEdgeKey(src, n)]
	g.removeEdge(src, n)
	key := makeEdgeKey(dst, n)
	e := &edge{key: key, weight: old.weight, seq: old.seq}
	g.edges[key] = e
	g.adj[dst][n] = e
	g.adj[n][dst] = e
}

// removeNode drops a region and all its incident edges.
func (g *Graph) removeNode(id int) {
	for n := range g.adj[id] {
		delete(g.edges, makeEdgeKey(id, n))
		delete(g.adj[n], id)
	}
	delete(g.adj, id)
	delete(g.nodes, id)
}

// accumulate folds one pixel's channel values into the node statistics.
func (n *Node) accumulate(c0, c1, c2 float64) {
	n.N++
	n.Sum[0] += c0
	n.Sum[1] += c1
	n.Sum[2] += c2
	n.Samples[0] = append(n.Samples[0], c0)
	n.Samples[1] = append(n.Samples[1], c1)
	n.Samples[2] = append(n.Samples[2], c2)
}

// refresh derives the node's normalized mean color and per-channel
// histograms from its accumulated statistics.
func (n *Node) refresh(dividers []float64) error {
	if n.N == 0 {
		return ErrDegenerateRegion
	}
	for c := 0; c < channels; c++ {
		n.Mean[c] = n.Sum[c] / float64(n.N)
	}
	normalize(n.Mean[:])

	for c := 0; c < channels; c++ {
		n.Hist[c] = channelHistogram(n.Samples[c], dividers)
		normalize(n.Hist[c])
	}
	return nil
}

// channelHistogram bins the samples into len(dividers)-1 counts.
// Samples are copied and sorted because stat.Histogram requires ordered
// input; values at or above the last divider are clamped into the top
// bin so an exact 255 sample counts.
func channelHistogram(samples []float64, dividers []float64) []float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	max := dividers[len(dividers)-1]
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] < max {
			break
		}
		sorted[i] = math.Nextafter(max, 0)
	}

	return stat.Histogram(nil, dividers, sorted, nil)
}

// normalize scales v to unit L2 length, leaving zero vectors untouched.
func normalize(v []float64) {
	norm := floats.Norm(v, 2)
	if norm > 0 {
		floats.Scale(1/norm, v)
	}
}
