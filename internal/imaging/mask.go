package imaging

import "image"

// MaskFromImage converts a grayscale or color mask image into a binary
// tissue mask: pixels with luminance above half range become 1, the
// rest 0. The mask is stored in a LabelMap for convenience; it is only
// ever read as zero/non-zero.
func MaskFromImage(img image.Image) *LabelMap {
	bounds := img.Bounds()
	mask := NewLabelMap(bounds.Dx(), bounds.Dy())
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luminance on 8-bit channel values.
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			if lum > 127.5 {
				mask.Pix[i] = 1
			}
			i++
		}
	}
	return mask
}
