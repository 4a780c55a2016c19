// Package config loads and validates the region partitioning
// configuration bundle from YAML files and provides defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks a missing or out-of-range configuration option.
// Validation fails fast, before any computation starts; required fields
// are never silently defaulted.
var ErrConfiguration = errors.New("invalid configuration")

// Connectivity orders for region adjacency.
const (
	ConnectivityFirstOrder  = 1 // orthogonal neighbors only
	ConnectivitySecondOrder = 2 // orthogonal plus diagonal neighbors
)

// Config is the configuration bundle for the region partitioning
// pipeline.
type Config struct {
	// Segmenter controls the initial SLIC over-segmentation.
	Segmenter struct {
		// RegionCount is the target number of initial regions, or the
		// base count scaled by image area when Dynamic is true.
		RegionCount int `yaml:"regionCount"`

		// Dynamic scales RegionCount by imageArea/ReferencePixels,
		// capped at MaxRegionCount.
		Dynamic bool `yaml:"dynamic"`

		// ReferencePixels is the image area at which a dynamic count
		// equals RegionCount exactly.
		ReferencePixels int `yaml:"referencePixels"`

		// MaxRegionCount caps the dynamic region count.
		MaxRegionCount int `yaml:"maxRegionCount"`

		// Blur is the sigma of the Gaussian pre-smoothing applied
		// before segmentation. Zero disables smoothing.
		Blur float64 `yaml:"blur"`

		// Compactness trades color proximity against spatial proximity;
		// larger values yield squarer superpixels.
		Compactness float64 `yaml:"compactness"`

		// MaxIterations bounds the segmenter's assign/update loop.
		MaxIterations int `yaml:"maxIterations"`

		// ColorSpace selects the feature space: "rgb" or "lab".
		ColorSpace string `yaml:"colorSpace"`
	} `yaml:"segmenter"`

	// Merger controls graph construction and hierarchical merging.
	Merger struct {
		// Strategy names the registered merge strategy. "color" is the
		// built-in histogram+mean color strategy.
		Strategy string `yaml:"strategy"`

		// Threshold is the dissimilarity below which adjacent regions
		// are merged. Zero disables merging entirely.
		Threshold float64 `yaml:"threshold"`

		// Connectivity is 1 for first-order (orthogonal) adjacency or
		// 2 for second-order (adds diagonals).
		Connectivity int `yaml:"connectivity"`

		// WHist and WMean weight the histogram and mean-color terms of
		// the edge dissimilarity.
		WHist float64 `yaml:"wHist"`
		WMean float64 `yaml:"wMean"`

		// HistogramBins is the per-channel histogram resolution.
		HistogramBins int `yaml:"histogramBins"`
	} `yaml:"merger"`

	// Filter controls tissue-mask filtering of initial regions.
	Filter struct {
		// AcceptanceRatio is the minimum fraction of a region's pixels
		// that must fall inside the tissue mask for it to survive.
		AcceptanceRatio float64 `yaml:"acceptanceRatio"`
	} `yaml:"filter"`

	// DownsamplingFactor shrinks the image before segmentation and
	// merging; results are upsampled back to the original resolution.
	DownsamplingFactor float64 `yaml:"downsamplingFactor"`

	// CacheDir is where computed label maps are persisted. Empty
	// disables persistence.
	CacheDir string `yaml:"cacheDir"`
}

// Default returns the configuration used by the reference pipeline.
func Default() *Config {
	cfg := &Config{}

	cfg.Segmenter.RegionCount = 1000
	cfg.Segmenter.Dynamic = true
	cfg.Segmenter.ReferencePixels = 100000
	cfg.Segmenter.MaxRegionCount = 10000
	cfg.Segmenter.Blur = 1
	cfg.Segmenter.Compactness = 20
	cfg.Segmenter.MaxIterations = 10
	cfg.Segmenter.ColorSpace = "lab"

	cfg.Merger.Strategy = "color"
	cfg.Merger.Threshold = 0.03
	cfg.Merger.Connectivity = ConnectivitySecondOrder
	cfg.Merger.WHist = 0.5
	cfg.Merger.WMean = 0.5
	cfg.Merger.HistogramBins = 8

	cfg.Filter.AcceptanceRatio = 0.1

	cfg.DownsamplingFactor = 1

	return cfg
}

// Load reads a YAML configuration file over the defaults and validates
// the result. A missing file yields the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, cfg.Validate()
			}
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: error parsing config file: %v", ErrConfiguration, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every option against its valid range.
func (c *Config) Validate() error {
	switch {
	case c.Segmenter.RegionCount <= 0:
		return fmt.Errorf("%w: segmenter.regionCount must be positive, got %d", ErrConfiguration, c.Segmenter.RegionCount)
	case c.Segmenter.Dynamic && c.Segmenter.ReferencePixels <= 0:
		return fmt.Errorf("%w: segmenter.referencePixels must be positive for dynamic counts, got %d", ErrConfiguration, c.Segmenter.ReferencePixels)
	case c.Segmenter.Dynamic && c.Segmenter.MaxRegionCount <= 0:
		return fmt.Errorf("%w: segmenter.maxRegionCount must be positive for dynamic counts, got %d", ErrConfiguration, c.Segmenter.MaxRegionCount)
	case c.Segmenter.Blur < 0:
		return fmt.Errorf("%w: segmenter.blur must not be negative, got %g", ErrConfiguration, c.Segmenter.Blur)
	case c.Segmenter.Compactness <= 0:
		return fmt.Errorf("%w: segmenter.compactness must be positive, got %g", ErrConfiguration, c.Segmenter.Compactness)
	case c.Segmenter.MaxIterations <= 0:
		return fmt.Errorf("%w: segmenter.maxIterations must be positive, got %d", ErrConfiguration, c.Segmenter.MaxIterations)
	case c.Segmenter.ColorSpace != "rgb" && c.Segmenter.ColorSpace != "lab":
		return fmt.Errorf("%w: segmenter.colorSpace must be \"rgb\" or \"lab\", got %q", ErrConfiguration, c.Segmenter.ColorSpace)
	case c.Merger.Strategy == "":
		return fmt.Errorf("%w: merger.strategy is required", ErrConfiguration)
	case c.Merger.Threshold < 0:
		return fmt.Errorf("%w: merger.threshold must not be negative, got %g", ErrConfiguration, c.Merger.Threshold)
	case c.Merger.Connectivity != ConnectivityFirstOrder && c.Merger.Connectivity != ConnectivitySecondOrder:
		return fmt.Errorf("%w: merger.connectivity must be 1 or 2, got %d", ErrConfiguration, c.Merger.Connectivity)
	case c.Merger.WHist < 0 || c.Merger.WMean < 0:
		return fmt.Errorf("%w: merger weights must not be negative, got wHist=%g wMean=%g", ErrConfiguration, c.Merger.WHist, c.Merger.WMean)
	case c.Merger.WHist == 0 && c.Merger.WMean == 0:
		return fmt.Errorf("%w: at least one of merger.wHist and merger.wMean must be positive", ErrConfiguration)
	case c.Merger.HistogramBins <= 0:
		return fmt.Errorf("%w: merger.histogramBins must be positive, got %d", ErrConfiguration, c.Merger.HistogramBins)
	case c.Filter.AcceptanceRatio < 0 || c.Filter.AcceptanceRatio > 1:
		return fmt.Errorf("%w: filter.acceptanceRatio must be in [0, 1], got %g", ErrConfiguration, c.Filter.AcceptanceRatio)
	case c.DownsamplingFactor < 1:
		return fmt.Errorf("%w: downsamplingFactor must be >= 1, got %g", ErrConfiguration, c.DownsamplingFactor)
	}
	return nil
}
