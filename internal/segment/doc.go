// Package segment produces the initial dense region partition of a
// tissue image and filters it against a tissue mask.
//
// The Segmenter implements SLIC superpixel clustering: seeds are placed
// on a regular grid, pixels are assigned to the nearest seed under a
// compactness-weighted color+space distance, and seed centroids are
// recomputed for a fixed number of iterations. A connectivity pass then
// absorbs stray fragments so every region is spatially connected.
//
// The output contract is shared by every producer of label maps in this
// repository: identifiers are contiguous starting at 1, and 0 is
// reserved for excluded pixels (the segmenter itself never emits 0; the
// tissue filter does).
//
// Determinism: for a fixed image and parameters the output is fully
// reproducible. Seeding is grid-based and the iteration loops contain
// no randomness.
package segment
