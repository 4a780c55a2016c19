package rag

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/tissuegraph/regionmap/internal/config"
	"github.com/tissuegraph/regionmap/internal/imaging"
)

// quadrantLabels builds a size x size map split into four quadrants
// labeled 1 (top-left), 2 (top-right), 3 (bottom-left), 4 (bottom-right).
func quadrantLabels(size int) *imaging.LabelMap {
	m := imaging.NewLabelMap(size, size)
	half := size / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			label := 1
			if x >= half {
				label = 2
			}
			if y >= half {
				label += 2
			}
			m.Set(x, y, label)
		}
	}
	return m
}

// halvesImage paints the left half of a square image one color and the
// right half another.
func halvesImage(size int, left, right color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x < size/2 {
				img.Set(x, y, left)
			} else {
				img.Set(x, y, right)
			}
		}
	}
	return img
}

func colorStrategy() *ColorStrategy {
	return &ColorStrategy{WHist: 0.5, WMean: 0.5}
}

func TestBuildPixelConservation(t *testing.T) {
	labels := quadrantLabels(20)
	img := halvesImage(20, color.RGBA{200, 40, 40, 255}, color.RGBA{40, 40, 200, 255})

	g, err := NewBuilder(config.ConnectivitySecondOrder, 8, colorStrategy()).Build(img, labels)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	total := 0
	for _, id := range g.NodeIDs() {
		total += g.Node(id).N
	}
	if total != 400 {
		t.Errorf("sum of node pixel counts: got %d, want 400", total)
	}
	if g.Node(1).N != 100 {
		t.Errorf("node 1 pixel count: got %d, want 100", g.Node(1).N)
	}
}

func TestBuildSkipsBackground(t *testing.T) {
	labels := quadrantLabels(10)
	// Exclude the bottom-right quadrant entirely.
	for i, v := range labels.Pix {
		if v == 4 {
			labels.Pix[i] = 0
		}
	}
	img := halvesImage(10, color.RGBA{200, 40, 40, 255}, color.RGBA{40, 40, 200, 255})

	g, err := NewBuilder(config.ConnectivityFirstOrder, 8, colorStrategy()).Build(img, labels)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if g.Node(4) != nil {
		t.Error("background-only region must not become a node")
	}
	total := 0
	for _, id := range g.NodeIDs() {
		total += g.Node(id).N
	}
	if total != 75 {
		t.Errorf("sum of node pixel counts: got %d, want 75", total)
	}
}

func TestBuildConnectivityOrders(t *testing.T) {
	// A 2x2 map with four single-pixel regions: orthogonal adjacency
	// yields 4 edges, diagonal adjacency adds (1,4) and (2,3).
	labels := quadrantLabels(2)
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	first, err := NewBuilder(config.ConnectivityFirstOrder, 8, colorStrategy()).Build(img, labels)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if first.EdgeCount() != 4 {
		t.Errorf("first-order edges: got %d, want 4", first.EdgeCount())
	}
	if first.HasEdge(1, 4) || first.HasEdge(2, 3) {
		t.Error("first-order adjacency must not include diagonals")
	}

	second, err := NewBuilder(config.ConnectivitySecondOrder, 8, colorStrategy()).Build(img, labels)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if second.EdgeCount() != 6 {
		t.Errorf("second-order edges: got %d, want 6", second.EdgeCount())
	}
	if !second.HasEdge(1, 4) || !second.HasEdge(2, 3) {
		t.Error("second-order adjacency must include diagonals")
	}
}

func TestBuildNoEdgeWithoutSharedBoundary(t *testing.T) {
	// Regions 1 and 2 separated by a background column share no boundary.
	labels := imaging.NewLabelMap(3, 1)
	labels.Set(0, 0, 1)
	labels.Set(2, 0, 2)
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))

	g, err := NewBuilder(config.ConnectivitySecondOrder, 8, colorStrategy()).Build(img, labels)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g.HasEdge(1, 2) {
		t.Error("regions separated by background must not be adjacent")
	}
}

func TestBuildWeightFormula(t *testing.T) {
	// Two single-pixel regions: pure red (255,0,0) and pure blue
	// (0,0,255). With unit-normalized statistics the expected weight is
	// 0.5 * sqrt(2)/3 (histogram term: two channels differ by sqrt(2)/2,
	// one matches) + 0.5 * sqrt(2)/2 (mean term).
	labels := imaging.NewLabelMap(2, 1)
	labels.Set(0, 0, 1)
	labels.Set(1, 0, 2)
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 0, 255, 255})

	g, err := NewBuilder(config.ConnectivityFirstOrder, 8, colorStrategy()).Build(img, labels)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got, ok := g.Weight(1, 2)
	if !ok {
		t.Fatal("edge (1,2) missing")
	}
	want := 0.5*math.Sqrt2/3 + 0.5*math.Sqrt2/2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("weight: got %g, want %g", got, want)
	}
}

func TestBuildIdenticalRegionsZeroWeight(t *testing.T) {
	labels := imaging.NewLabelMap(2, 1)
	labels.Set(0, 0, 1)
	labels.Set(1, 0, 2)
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{90, 120, 30, 255})
	img.Set(1, 0, color.RGBA{90, 120, 30, 255})

	g, err := NewBuilder(config.ConnectivityFirstOrder, 8, colorStrategy()).Build(img, labels)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if w, _ := g.Weight(1, 2); w != 0 {
		t.Errorf("identical regions should have zero dissimilarity, got %g", w)
	}
}

func TestBuildNormalizedStatistics(t *testing.T) {
	labels := quadrantLabels(8)
	img := halvesImage(8, color.RGBA{200, 40, 40, 255}, color.RGBA{40, 40, 200, 255})

	g, err := NewBuilder(config.ConnectivityFirstOrder, 8, colorStrategy()).Build(img, labels)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, id := range g.NodeIDs() {
		n := g.Node(id)
		if norm := vectorNorm(n.Mean[:]); math.Abs(norm-1) > 1e-12 {
			t.Errorf("node %d mean norm: got %g, want 1", id, norm)
		}
		for c := 0; c < channels; c++ {
			if norm := vectorNorm(n.Hist[c]); math.Abs(norm-1) > 1e-12 {
				t.Errorf("node %d channel %d histogram norm: got %g, want 1", id, c, norm)
			}
		}
	}
}

func TestBuildDimensionMismatch(t *testing.T) {
	labels := imaging.NewLabelMap(4, 4)
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))

	if _, err := NewBuilder(config.ConnectivityFirstOrder, 8, colorStrategy()).Build(img, labels); err == nil {
		t.Error("mismatched image and label map dimensions should be rejected")
	}
}

func vectorNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
