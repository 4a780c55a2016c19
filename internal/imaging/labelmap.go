package imaging

import "fmt"

// LabelMap is a dense per-pixel assignment of region identifiers.
//
// The zero label marks excluded/background pixels and is never a region.
// Pix is stored row-major with Width*Height entries; the struct's fields
// are exported so label maps can be gob-encoded by the cache store.
type LabelMap struct {
	Width  int
	Height int
	Pix    []int
}

// NewLabelMap allocates a label map of the given dimensions with every
// pixel set to the background label 0.
func NewLabelMap(width, height int) *LabelMap {
	return &LabelMap{
		Width:  width,
		Height: height,
		Pix:    make([]int, width*height),
	}
}

// At returns the label at (x, y). Coordinates must be in bounds.
func (m *LabelMap) At(x, y int) int {
	return m.Pix[y*m.Width+x]
}

// Set assigns the label at (x, y). Coordinates must be in bounds.
func (m *LabelMap) Set(x, y, label int) {
	m.Pix[y*m.Width+x] = label
}

// Clone returns a deep copy of the map.
func (m *LabelMap) Clone() *LabelMap {
	pix := make([]int, len(m.Pix))
	copy(pix, m.Pix)
	return &LabelMap{Width: m.Width, Height: m.Height, Pix: pix}
}

// Equal reports whether two maps have identical dimensions and labels.
func (m *LabelMap) Equal(other *LabelMap) bool {
	if other == nil || m.Width != other.Width || m.Height != other.Height {
		return false
	}
	for i, v := range m.Pix {
		if other.Pix[i] != v {
			return false
		}
	}
	return true
}

// Distinct returns the set of labels present in the map, excluding the
// background label 0, ordered by first appearance in raster order.
func (m *LabelMap) Distinct() []int {
	seen := make(map[int]bool)
	var labels []int
	for _, v := range m.Pix {
		if v == 0 || seen[v] {
			continue
		}
		seen[v] = true
		labels = append(labels, v)
	}
	return labels
}

// Counts returns the number of pixels carrying each non-zero label.
func (m *LabelMap) Counts() map[int]int {
	counts := make(map[int]int)
	for _, v := range m.Pix {
		if v != 0 {
			counts[v]++
		}
	}
	return counts
}

// Compact renumbers the map's labels to be contiguous starting at 1, in
// order of first appearance in raster order, preserving label 0. It
// returns the number of distinct regions after renumbering.
func (m *LabelMap) Compact() int {
	remap := make(map[int]int)
	next := 1
	for i, v := range m.Pix {
		if v == 0 {
			continue
		}
		id, ok := remap[v]
		if !ok {
			id = next
			remap[v] = id
			next++
		}
		m.Pix[i] = id
	}
	return next - 1
}

// Remap rewrites every non-zero label through the given mapping. Labels
// absent from the mapping are an error: a final label map must account
// for every surviving region.
func (m *LabelMap) Remap(mapping map[int]int) error {
	for i, v := range m.Pix {
		if v == 0 {
			continue
		}
		id, ok := mapping[v]
		if !ok {
			return fmt.Errorf("label %d has no mapping", v)
		}
		m.Pix[i] = id
	}
	return nil
}
