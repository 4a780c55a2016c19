package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Downsample shrinks an image by the given factor using nearest-neighbor
// resampling. The output dimensions are floor(dim/factor). A factor of 1
// returns the input unchanged; factors below 1 are rejected.
//
// Nearest-neighbor trades color fidelity for speed, which is the point:
// the downsampled image only feeds the initial segmentation, and the same
// resampling keeps label boundaries hard when applied to label maps.
func Downsample(img image.Image, factor float64) (image.Image, error) {
	if factor < 1 {
		return nil, fmt.Errorf("downsampling factor must be >= 1, got %g", factor)
	}
	if factor == 1 {
		return img, nil
	}
	bounds := img.Bounds()
	newWidth := int(float64(bounds.Dx()) / factor)
	newHeight := int(float64(bounds.Dy()) / factor)
	if newWidth < 1 || newHeight < 1 {
		return nil, fmt.Errorf("downsampling %dx%d by %g leaves no pixels", bounds.Dx(), bounds.Dy(), factor)
	}
	return imaging.Resize(img, newWidth, newHeight, imaging.NearestNeighbor), nil
}

// DownsampleMask shrinks a binary mask by the given factor with the same
// floor(dim/factor) geometry as Downsample, so a mask and its image stay
// aligned through the pipeline.
func DownsampleMask(mask *LabelMap, factor float64) (*LabelMap, error) {
	if factor < 1 {
		return nil, fmt.Errorf("downsampling factor must be >= 1, got %g", factor)
	}
	if factor == 1 {
		return mask, nil
	}
	newWidth := int(float64(mask.Width) / factor)
	newHeight := int(float64(mask.Height) / factor)
	if newWidth < 1 || newHeight < 1 {
		return nil, fmt.Errorf("downsampling %dx%d by %g leaves no pixels", mask.Width, mask.Height, factor)
	}
	return resizeNearest(mask, newWidth, newHeight), nil
}

// Upsample resamples a label map to the target dimensions using
// nearest-neighbor semantics. Every output label is copied from some
// input pixel, so the set of labels present never grows.
func Upsample(m *LabelMap, targetHeight, targetWidth int) (*LabelMap, error) {
	if targetWidth < 1 || targetHeight < 1 {
		return nil, fmt.Errorf("invalid upsample target %dx%d", targetWidth, targetHeight)
	}
	if targetWidth == m.Width && targetHeight == m.Height {
		return m, nil
	}
	return resizeNearest(m, targetWidth, targetHeight), nil
}

// resizeNearest maps each destination pixel to its nearest source pixel.
func resizeNearest(m *LabelMap, newWidth, newHeight int) *LabelMap {
	out := NewLabelMap(newWidth, newHeight)
	xRatio := float64(m.Width) / float64(newWidth)
	yRatio := float64(m.Height) / float64(newHeight)
	for y := 0; y < newHeight; y++ {
		srcY := int(float64(y) * yRatio)
		if srcY >= m.Height {
			srcY = m.Height - 1
		}
		for x := 0; x < newWidth; x++ {
			srcX := int(float64(x) * xRatio)
			if srcX >= m.Width {
				srcX = m.Width - 1
			}
			out.Pix[y*newWidth+x] = m.Pix[srcY*m.Width+srcX]
		}
	}
	return out
}
