package imaging

import (
	"fmt"
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color spaces accepted by Recolor.
const (
	SpaceRGB = "rgb"
	SpaceLab = "lab"
)

// FeatureImage holds per-pixel float triples in a chosen feature space.
//
// RGB features are in 0..255 per channel. Lab features follow the CIE
// convention with L in 0..100, which keeps spatial/color distance ratios
// compatible with the usual compactness settings of the segmenter.
type FeatureImage struct {
	Width  int
	Height int
	Pix    []float64 // 3 entries per pixel, row-major
}

// At returns the three feature components at (x, y).
func (f *FeatureImage) At(x, y int) (float64, float64, float64) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Recolor converts an image into per-pixel feature triples in the given
// color space. Supported spaces are "rgb" and "lab".
func Recolor(img image.Image, space string) (*FeatureImage, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := &FeatureImage{
		Width:  width,
		Height: height,
		Pix:    make([]float64, 3*width*height),
	}

	switch space {
	case SpaceRGB:
		i := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				out.Pix[i] = float64(r >> 8)
				out.Pix[i+1] = float64(g >> 8)
				out.Pix[i+2] = float64(b >> 8)
				i += 3
			}
		}
	case SpaceLab:
		i := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				c := colorful.Color{
					R: float64(r>>8) / 255.0,
					G: float64(g>>8) / 255.0,
					B: float64(b>>8) / 255.0,
				}
				l, a, bb := c.Lab()
				// go-colorful reports L in 0..1; CIE convention is 0..100.
				out.Pix[i] = l * 100
				out.Pix[i+1] = a * 100
				out.Pix[i+2] = bb * 100
				i += 3
			}
		}
	default:
		return nil, fmt.Errorf("unknown color space %q", space)
	}
	return out, nil
}
