// Package pipeline wires the partitioning stages together: scale down,
// segment, filter, build the region graph, merge, scale back up, and
// optionally persist. Each image flows through the stages independently,
// so a batch fans out across workers with no shared mutable state.
package pipeline

import (
	"fmt"
	"image"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tissuegraph/regionmap/internal/config"
	"github.com/tissuegraph/regionmap/internal/imaging"
	"github.com/tissuegraph/regionmap/internal/rag"
	"github.com/tissuegraph/regionmap/internal/segment"
	"github.com/tissuegraph/regionmap/internal/store"
)

// Extractor runs the full region partitioning pipeline for one image at
// a time. It is stateless between calls: a single Extractor may be
// shared by concurrent workers processing different images.
type Extractor struct {
	cfg       *config.Config
	segmenter *segment.Segmenter
	filter    *segment.TissueFilter
	builder   *rag.Builder
	merger    *rag.Merger
	store     *store.Store
	logger    *log.Logger
}

// New builds an extractor from a validated configuration. The store may
// be nil to disable persistence; a nil logger falls back to the default.
// An unknown merge strategy name fails here, at configuration time.
func New(cfg *config.Config, st *store.Store, logger *log.Logger) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := rag.NewStrategy(cfg.Merger.Strategy, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{
		cfg:       cfg,
		segmenter: segment.NewSegmenter(cfg),
		filter:    segment.NewTissueFilter(cfg.Filter.AcceptanceRatio),
		builder:   rag.NewBuilder(cfg.Merger.Connectivity, cfg.Merger.HistogramBins, strategy),
		merger:    rag.NewMerger(cfg.Merger.Threshold, strategy),
		store:     st,
		logger:    logger,
	}, nil
}

// Process partitions one image and returns the merged label map and the
// initial (filtered, pre-merge) label map, both at the image's original
// resolution. The tissue mask is optional and must match the original
// resolution when present.
//
// Any failure aborts the whole image's processing; partial results are
// never returned.
func (e *Extractor) Process(img image.Image, mask *imaging.LabelMap) (*imaging.LabelMap, *imaging.LabelMap, error) {
	bounds := img.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()

	work, err := imaging.Downsample(img, e.cfg.DownsamplingFactor)
	if err != nil {
		return nil, nil, err
	}
	var workMask *imaging.LabelMap
	if mask != nil {
		if mask.Width != origWidth || mask.Height != origHeight {
			return nil, nil, fmt.Errorf("tissue mask is %dx%d but image is %dx%d",
				mask.Width, mask.Height, origWidth, origHeight)
		}
		if workMask, err = imaging.DownsampleMask(mask, e.cfg.DownsamplingFactor); err != nil {
			return nil, nil, err
		}
	}

	initial, err := e.segmenter.Segment(work)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Debug("initial segmentation", "regions", len(initial.Distinct()))

	filtered, err := e.filter.Apply(initial, workMask)
	if err != nil {
		return nil, nil, err
	}

	graph, err := e.builder.Build(work, filtered)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Debug("region graph built", "nodes", graph.NodeCount(), "edges", graph.EdgeCount())

	merged, err := e.merger.Merge(graph, filtered)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Debug("regions merged", "regions", graph.NodeCount())

	merged, err = imaging.Upsample(merged, origHeight, origWidth)
	if err != nil {
		return nil, nil, err
	}
	filtered, err = imaging.Upsample(filtered, origHeight, origWidth)
	if err != nil {
		return nil, nil, err
	}
	return merged, filtered, nil
}

// ProcessAndSave reuses a cached result for the output name when one
// exists, and otherwise computes and persists one. A cache read failure
// is fatal for the name (the entry is never auto-deleted); a cache write
// failure is returned alongside the freshly computed maps, since only
// persistence was lost.
func (e *Extractor) ProcessAndSave(name string, img image.Image, mask *imaging.LabelMap) (*imaging.LabelMap, *imaging.LabelMap, error) {
	if e.store == nil {
		return e.Process(img, mask)
	}

	entry, ok, err := e.store.Load(name)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		e.logger.Info("using cached result", "name", name)
		return entry.Merged, entry.Initial, nil
	}

	merged, initial, err := e.Process(img, mask)
	if err != nil {
		return nil, nil, err
	}
	if err := e.store.Store(name, merged, initial); err != nil {
		return merged, initial, err
	}
	return merged, initial, nil
}

// Task is one image to partition in a batch run.
type Task struct {
	Name  string
	Image image.Image
	Mask  *imaging.LabelMap
}

// Result is the outcome of one batch task.
type Result struct {
	Name    string
	Merged  *imaging.LabelMap
	Initial *imaging.LabelMap
	Err     error
}

// Batch processes tasks across the given number of workers. Images are
// independent, so the only coordination is the work queue; results come
// back in task order. Workers below 1 are treated as 1.
func (e *Extractor) Batch(tasks []Task, workers int) []Result {
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	results := make([]Result, len(tasks))
	queue := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				task := tasks[i]
				merged, initial, err := e.ProcessAndSave(task.Name, task.Image, task.Mask)
				results[i] = Result{Name: task.Name, Merged: merged, Initial: initial, Err: err}
			}
		}()
	}
	for i := range tasks {
		queue <- i
	}
	close(queue)
	wg.Wait()
	return results
}
