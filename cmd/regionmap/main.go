// Command regionmap partitions tissue images into merged superpixel
// regions and persists the resulting label maps.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/tissuegraph/regionmap/internal/config"
	"github.com/tissuegraph/regionmap/internal/imaging"
	"github.com/tissuegraph/regionmap/internal/pipeline"
	"github.com/tissuegraph/regionmap/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("regionmap %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	configPath := flag.String("config", "", "Path to YAML configuration file")
	maskDir := flag.String("masks", "", "Directory of tissue mask images named like their slides")
	cacheDir := flag.String("cache", "", "Cache directory (overrides config)")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of images to process in parallel")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: regionmap [options] image...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("configuration", "err", err)
	}
	if *cacheDir != "" {
		cfg.CacheDir = *cacheDir
	}

	var st *store.Store
	if cfg.CacheDir != "" {
		if st, err = store.New(cfg.CacheDir); err != nil {
			logger.Fatal("cache store", "err", err)
		}
	}

	extractor, err := pipeline.New(cfg, st, logger)
	if err != nil {
		logger.Fatal("pipeline", "err", err)
	}

	cache := imaging.NewImageCache()
	var tasks []pipeline.Task
	for _, path := range flag.Args() {
		img, err := cache.Load(path)
		if err != nil {
			logger.Fatal("loading image", "path", path, "err", err)
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		var mask *imaging.LabelMap
		if *maskDir != "" {
			maskImg, err := loadMask(cache, *maskDir, name)
			if err != nil {
				logger.Fatal("loading mask", "name", name, "err", err)
			}
			if maskImg != nil {
				mask = maskImg
			}
		}
		tasks = append(tasks, pipeline.Task{Name: name, Image: img, Mask: mask})
	}

	results := extractor.Batch(tasks, *workers)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			logger.Error("processing failed", "name", r.Name, "err", r.Err)
			failed++
			continue
		}
		logger.Info("partitioned",
			"name", r.Name,
			"regions", len(r.Merged.Distinct()),
			"initial", len(r.Initial.Distinct()))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// loadMask finds a mask image for the slide name under dir, trying the
// common raster extensions. A missing mask is not an error: the slide is
// simply processed unfiltered.
func loadMask(cache *imaging.ImageCache, dir, name string) (*imaging.LabelMap, error) {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		img, err := cache.Load(path)
		if err != nil {
			return nil, err
		}
		return imaging.MaskFromImage(img), nil
	}
	return nil, nil
}
