package segment

import (
	"fmt"

	"github.com/tissuegraph/regionmap/internal/imaging"
)

// TissueFilter discards initial regions with insufficient overlap with a
// binary tissue mask.
type TissueFilter struct {
	acceptanceRatio float64
}

// NewTissueFilter creates a filter that keeps regions whose in-mask pixel
// ratio is at least the acceptance ratio.
func NewTissueFilter(acceptanceRatio float64) *TissueFilter {
	return &TissueFilter{acceptanceRatio: acceptanceRatio}
}

// Apply relabels the map so that only regions with at least the
// acceptance ratio of their pixels inside the mask survive. Survivors
// are renumbered contiguously from 1 in order of first appearance in
// raster order; rejected regions become label 0. A nil mask keeps the
// map unchanged.
//
// This is a pure relabeling: the mask is never mutated, no statistics
// are accumulated, and the input map is not modified.
func (f *TissueFilter) Apply(labels *imaging.LabelMap, mask *imaging.LabelMap) (*imaging.LabelMap, error) {
	if mask == nil {
		return labels, nil
	}
	if mask.Width != labels.Width || mask.Height != labels.Height {
		return nil, fmt.Errorf("tissue mask is %dx%d but label map is %dx%d",
			mask.Width, mask.Height, labels.Width, labels.Height)
	}

	total := make(map[int]int)
	inMask := make(map[int]int)
	for i, v := range labels.Pix {
		if v == 0 {
			continue
		}
		total[v]++
		if mask.Pix[i] != 0 {
			inMask[v]++
		}
	}

	remap := make(map[int]int)
	next := 1
	out := imaging.NewLabelMap(labels.Width, labels.Height)
	for i, v := range labels.Pix {
		if v == 0 {
			continue
		}
		id, seen := remap[v]
		if !seen {
			if float64(inMask[v])/float64(total[v]) >= f.acceptanceRatio {
				id = next
				next++
			} else {
				id = 0
			}
			remap[v] = id
		}
		out.Pix[i] = id
	}
	return out, nil
}
