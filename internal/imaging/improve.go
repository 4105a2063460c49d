package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// UpscaleFactor is the fixed enlargement applied by the improve stages to
// compensate for low source DPI.
const UpscaleFactor = 1.2

// DefaultMorphKernel is the side of the square structuring element used by
// Morph. A 1x1 element leaves the image unchanged; larger odd sizes close
// small dark specks at the cost of thin strokes.
const DefaultMorphKernel = 1

// Upscale enlarges img by UpscaleFactor using Catmull-Rom cubic
// interpolation.
func Upscale(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := ScaledSize(bounds.Dx(), bounds.Dy(), UpscaleFactor)
	return imaging.Resize(img, w, h, imaging.CatmullRom)
}

// Grayscale converts img to a single-channel luminance image.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return cloneGray(g)
	}
	return grayFromRGBA(effect.Grayscale(img))
}

// Morph runs one dilation followed by one erosion with a kernel x kernel
// square structuring element. kernel must be a positive odd number.
func Morph(src *image.Gray, kernel int) (*image.Gray, error) {
	if kernel < 1 || kernel%2 == 0 {
		return nil, fmt.Errorf("morphology kernel must be a positive odd size, got %d", kernel)
	}
	if kernel == 1 {
		return cloneGray(src), nil
	}

	radius := float64(kernel / 2)
	dilated := effect.Dilate(src, radius)
	return grayFromRGBA(effect.Erode(dilated, radius)), nil
}
