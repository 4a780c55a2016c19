package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero region count", func(c *Config) { c.Segmenter.RegionCount = 0 }},
		{"negative region count", func(c *Config) { c.Segmenter.RegionCount = -3 }},
		{"dynamic without reference area", func(c *Config) { c.Segmenter.ReferencePixels = 0 }},
		{"dynamic without cap", func(c *Config) { c.Segmenter.MaxRegionCount = 0 }},
		{"negative blur", func(c *Config) { c.Segmenter.Blur = -1 }},
		{"zero compactness", func(c *Config) { c.Segmenter.Compactness = 0 }},
		{"zero iterations", func(c *Config) { c.Segmenter.MaxIterations = 0 }},
		{"unknown color space", func(c *Config) { c.Segmenter.ColorSpace = "hsv" }},
		{"empty strategy", func(c *Config) { c.Merger.Strategy = "" }},
		{"negative threshold", func(c *Config) { c.Merger.Threshold = -0.1 }},
		{"bad connectivity", func(c *Config) { c.Merger.Connectivity = 3 }},
		{"negative weight", func(c *Config) { c.Merger.WHist = -0.5 }},
		{"all-zero weights", func(c *Config) { c.Merger.WHist = 0; c.Merger.WMean = 0 }},
		{"zero histogram bins", func(c *Config) { c.Merger.HistogramBins = 0 }},
		{"acceptance ratio above one", func(c *Config) { c.Filter.AcceptanceRatio = 1.5 }},
		{"fractional downsampling", func(c *Config) { c.DownsamplingFactor = 0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrConfiguration)
		})
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
segmenter:
  regionCount: 250
  colorSpace: rgb
merger:
  threshold: 0.1
downsamplingFactor: 2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 250, cfg.Segmenter.RegionCount)
	require.Equal(t, "rgb", cfg.Segmenter.ColorSpace)
	require.Equal(t, 0.1, cfg.Merger.Threshold)
	require.Equal(t, 2.0, cfg.DownsamplingFactor)

	// Untouched options keep their defaults.
	require.Equal(t, 20.0, cfg.Segmenter.Compactness)
	require.Equal(t, "color", cfg.Merger.Strategy)
	require.Equal(t, ConnectivitySecondOrder, cfg.Merger.Connectivity)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("segmenter: [not a map"), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadValidatesOverlaidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "merger:\n  connectivity: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
