package imaging

import "testing"

func TestLabelMapCompact(t *testing.T) {
	m := NewLabelMap(3, 2)
	copy(m.Pix, []int{7, 7, 3, 0, 3, 9})

	k := m.Compact()
	if k != 3 {
		t.Fatalf("Compact returned %d regions, want 3", k)
	}

	// Renumbered in raster order of first appearance: 7->1, 3->2, 9->3.
	want := []int{1, 1, 2, 0, 2, 3}
	for i, v := range want {
		if m.Pix[i] != v {
			t.Errorf("Pix[%d]: got %d, want %d", i, m.Pix[i], v)
		}
	}
}

func TestLabelMapCompactPreservesBackground(t *testing.T) {
	m := NewLabelMap(2, 2)
	copy(m.Pix, []int{0, 5, 0, 5})

	if k := m.Compact(); k != 1 {
		t.Fatalf("Compact returned %d regions, want 1", k)
	}
	if m.Pix[0] != 0 || m.Pix[2] != 0 {
		t.Error("background pixels must stay 0 after compaction")
	}
}

func TestLabelMapDistinct(t *testing.T) {
	m := NewLabelMap(2, 2)
	copy(m.Pix, []int{4, 0, 2, 4})

	got := m.Distinct()
	want := []int{4, 2}
	if len(got) != len(want) {
		t.Fatalf("Distinct: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Distinct: got %v, want %v", got, want)
		}
	}
}

func TestLabelMapCounts(t *testing.T) {
	m := NewLabelMap(2, 2)
	copy(m.Pix, []int{1, 1, 0, 2})

	counts := m.Counts()
	if counts[1] != 2 || counts[2] != 1 {
		t.Errorf("Counts: got %v, want map[1:2 2:1]", counts)
	}
	if _, ok := counts[0]; ok {
		t.Error("Counts must not include the background label")
	}
}

func TestLabelMapRemap(t *testing.T) {
	m := NewLabelMap(2, 1)
	copy(m.Pix, []int{1, 2})

	if err := m.Remap(map[int]int{1: 5, 2: 5}); err != nil {
		t.Fatalf("Remap failed: %v", err)
	}
	if m.Pix[0] != 5 || m.Pix[1] != 5 {
		t.Errorf("Remap: got %v, want [5 5]", m.Pix)
	}

	if err := m.Remap(map[int]int{}); err == nil {
		t.Error("Remap with missing mapping should fail")
	}
}

func TestLabelMapCloneIsDeep(t *testing.T) {
	m := NewLabelMap(2, 1)
	m.Set(0, 0, 3)

	c := m.Clone()
	c.Set(0, 0, 9)

	if m.At(0, 0) != 3 {
		t.Error("mutating a clone must not affect the original")
	}
	if !m.Equal(m.Clone()) {
		t.Error("a fresh clone must compare equal")
	}
	if m.Equal(c) {
		t.Error("maps with different labels must not compare equal")
	}
}
