package segment

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"

	"github.com/tissuegraph/regionmap/internal/config"
	"github.com/tissuegraph/regionmap/internal/imaging"
)

// Segmenter extracts SLIC superpixels from an image.
type Segmenter struct {
	regionCount     int
	dynamic         bool
	referencePixels int
	maxRegionCount  int
	blurSigma       float64
	compactness     float64
	maxIterations   int
	colorSpace      string
}

// NewSegmenter builds a segmenter from the validated configuration.
func NewSegmenter(cfg *config.Config) *Segmenter {
	return &Segmenter{
		regionCount:     cfg.Segmenter.RegionCount,
		dynamic:         cfg.Segmenter.Dynamic,
		referencePixels: cfg.Segmenter.ReferencePixels,
		maxRegionCount:  cfg.Segmenter.MaxRegionCount,
		blurSigma:       cfg.Segmenter.Blur,
		compactness:     cfg.Segmenter.Compactness,
		maxIterations:   cfg.Segmenter.MaxIterations,
		colorSpace:      cfg.Segmenter.ColorSpace,
	}
}

// TargetRegions returns the region count used for an image of the given
// area: the fixed count, or the count scaled by area relative to the
// reference area and capped at the configured maximum.
func (s *Segmenter) TargetRegions(width, height int) int {
	if !s.dynamic {
		return s.regionCount
	}
	n := int(float64(s.regionCount) * float64(width*height) / float64(s.referencePixels))
	if n > s.maxRegionCount {
		n = s.maxRegionCount
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Segment partitions the image into superpixels and returns a label map
// with contiguous identifiers starting at 1. Label 0 is never emitted.
func (s *Segmenter) Segment(img image.Image) (*imaging.LabelMap, error) {
	if s.blurSigma > 0 {
		img = blur.Gaussian(img, s.blurSigma)
	}

	features, err := imaging.Recolor(img, s.colorSpace)
	if err != nil {
		return nil, fmt.Errorf("segmenter: %w", err)
	}

	width, height := features.Width, features.Height
	target := s.TargetRegions(width, height)

	c := newClustering(features, s.compactness, target)
	for i := 0; i < s.maxIterations; i++ {
		c.resetDistances()
		for _, seed := range c.seeds {
			c.assignWindow(seed)
		}
		c.recomputeCentroids()
	}
	c.assignOrphans()

	labels := c.enforceConnectivity()

	// Shift to 1-based identifiers so 0 stays reserved for exclusion.
	out := imaging.NewLabelMap(width, height)
	for i, v := range labels {
		out.Pix[i] = v + 1
	}
	return out, nil
}

// seed is one cluster center: three feature components and a position.
type seed struct {
	label      int
	f1, f2, f3 float64
	x, y       float64
}

// clustering holds the per-run SLIC state.
type clustering struct {
	features *imaging.FeatureImage
	width    int
	height   int
	step     int
	invwt    float64
	seeds    []*seed
	labels   []int
	dist     []float64
}

func newClustering(features *imaging.FeatureImage, compactness float64, target int) *clustering {
	width, height := features.Width, features.Height
	size := width * height
	if target < 1 {
		target = 1
	}

	step := int(math.Sqrt(float64(size)/float64(target)) + 0.5)
	if step < 1 {
		step = 1
	}

	xStrips := width / step
	if xStrips < 1 {
		xStrips = 1
	}
	yStrips := height / step
	if yStrips < 1 {
		yStrips = 1
	}

	c := &clustering{
		features: features,
		width:    width,
		height:   height,
		step:     step,
		invwt:    1.0 / ((float64(step) / compactness) * (float64(step) / compactness)),
		labels:   make([]int, size),
		dist:     make([]float64, size),
	}
	for i := range c.labels {
		c.labels[i] = -1
	}

	// Seed cluster centers on a regular grid, centered in each strip and
	// spreading the rounding error evenly.
	xErrPerStrip := float64(width-step*xStrips) / float64(xStrips)
	yErrPerStrip := float64(height-step*yStrips) / float64(yStrips)
	for sy := 0; sy < yStrips; sy++ {
		y := sy*step + step/2 + int(float64(sy)*yErrPerStrip)
		if y >= height {
			y = height - 1
		}
		for sx := 0; sx < xStrips; sx++ {
			x := sx*step + step/2 + int(float64(sx)*xErrPerStrip)
			if x >= width {
				x = width - 1
			}
			f1, f2, f3 := features.At(x, y)
			c.seeds = append(c.seeds, &seed{
				label: len(c.seeds),
				f1:    f1, f2: f2, f3: f3,
				x: float64(x), y: float64(y),
			})
		}
	}
	return c
}

func (c *clustering) resetDistances() {
	for i := range c.dist {
		c.dist[i] = math.MaxFloat64
	}
}

// assignWindow labels every pixel within one step of the seed whose
// combined color+space distance to it beats the current best.
func (c *clustering) assignWindow(s *seed) {
	fstep := float64(c.step)
	y1 := int(math.Max(0, s.y-fstep))
	y2 := int(math.Min(float64(c.height), s.y+fstep))
	x1 := int(math.Max(0, s.x-fstep))
	x2 := int(math.Min(float64(c.width), s.x+fstep))

	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			i := y*c.width + x
			f1, f2, f3 := c.features.At(x, y)
			dc := (f1-s.f1)*(f1-s.f1) + (f2-s.f2)*(f2-s.f2) + (f3-s.f3)*(f3-s.f3)
			dx := float64(x) - s.x
			dy := float64(y) - s.y
			d := dc + (dx*dx+dy*dy)*c.invwt
			if d < c.dist[i] {
				c.dist[i] = d
				c.labels[i] = s.label
			}
		}
	}
}

func (c *clustering) recomputeCentroids() {
	n := len(c.seeds)
	sum1 := make([]float64, n)
	sum2 := make([]float64, n)
	sum3 := make([]float64, n)
	sumX := make([]float64, n)
	sumY := make([]float64, n)
	count := make([]float64, n)

	i := 0
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			label := c.labels[i]
			if label < 0 {
				i++
				continue
			}
			f1, f2, f3 := c.features.At(x, y)
			sum1[label] += f1
			sum2[label] += f2
			sum3[label] += f3
			sumX[label] += float64(x)
			sumY[label] += float64(y)
			count[label]++
			i++
		}
	}

	for j, s := range c.seeds {
		if count[j] == 0 {
			continue
		}
		s.f1 = sum1[j] / count[j]
		s.f2 = sum2[j] / count[j]
		s.f3 = sum3[j] / count[j]
		s.x = sumX[j] / count[j]
		s.y = sumY[j] / count[j]
	}
}

// assignOrphans labels any pixel the windowed passes missed (possible at
// image borders when seeds drift) with its spatially nearest seed.
func (c *clustering) assignOrphans() {
	i := 0
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			if c.labels[i] >= 0 {
				i++
				continue
			}
			best := 0
			bestDist := math.MaxFloat64
			for j, s := range c.seeds {
				dx := float64(x) - s.x
				dy := float64(y) - s.y
				d := dx*dx + dy*dy
				if d < bestDist {
					bestDist = d
					best = j
				}
			}
			c.labels[i] = best
			i++
		}
	}
}

// enforceConnectivity relabels the clustering so every region is a single
// connected component, absorbing fragments smaller than a quarter of the
// mean segment size into an adjacent region. The returned labels are
// contiguous starting at 0, in raster order of first appearance.
func (c *clustering) enforceConnectivity() []int {
	dx4 := [4]int{-1, 0, 1, 0}
	dy4 := [4]int{0, -1, 0, 1}

	size := c.width * c.height
	minSize := size / len(c.seeds) / 4

	newLabels := make([]int, size)
	for i := range newLabels {
		newLabels[i] = -1
	}
	xs := make([]int, size)
	ys := make([]int, size)

	label := 0
	adjLabel := 0
	idx := 0
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			if newLabels[idx] >= 0 {
				idx++
				continue
			}
			newLabels[idx] = label
			xs[0], ys[0] = x, y

			// Remember an already-labeled neighbor in case this
			// component turns out to be a fragment.
			for n := 0; n < 4; n++ {
				nx, ny := x+dx4[n], y+dy4[n]
				if nx >= 0 && nx < c.width && ny >= 0 && ny < c.height {
					if v := newLabels[ny*c.width+nx]; v >= 0 {
						adjLabel = v
					}
				}
			}

			count := 1
			for front := 0; front < count; front++ {
				for n := 0; n < 4; n++ {
					nx, ny := xs[front]+dx4[n], ys[front]+dy4[n]
					if nx < 0 || nx >= c.width || ny < 0 || ny >= c.height {
						continue
					}
					ni := ny*c.width + nx
					if newLabels[ni] < 0 && c.labels[ni] == c.labels[idx] {
						xs[count], ys[count] = nx, ny
						newLabels[ni] = label
						count++
					}
				}
			}

			if count <= minSize {
				for f := 0; f < count; f++ {
					newLabels[ys[f]*c.width+xs[f]] = adjLabel
				}
				label--
			}
			label++
			idx++
		}
	}
	return newLabels
}
