// Package imaging provides the pixel-level building blocks of the region
// partitioning pipeline: image loading, label maps, multi-resolution
// scaling, and color-space conversion.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Label Maps
//
// A LabelMap assigns every pixel an integer region identifier. Label 0 is
// reserved for excluded/background pixels; identifiers 1..K denote regions.
// A map is "compact" when its identifiers are contiguous starting at 1.
//
// # Scaling
//
// Downsampling and upsampling both use nearest-neighbor resampling. For
// label maps this is a hard requirement: interpolation would blend region
// identifiers across boundaries and invent labels that never existed.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. LabelMap and
// FeatureImage are plain value holders; callers processing different
// images never share them.
package imaging
