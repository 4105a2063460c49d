package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	colorful "github.com/lucasb-eyer/go-colorful"
)

var flattenBackground = colorful.Color{R: 1, G: 1, B: 1}

// Flatten converts img to an opaque 3-channel RGBA image. Translucent pixels
// are composited onto a white background, which is what a scanner would
// have produced for the same page.
func Flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			i := dst.PixOffset(x-bounds.Min.X, y-bounds.Min.Y)

			r, g, b := c.R, c.G, c.B
			if c.A != 0xff {
				fg := colorful.Color{
					R: float64(c.R) / 255.0,
					G: float64(c.G) / 255.0,
					B: float64(c.B) / 255.0,
				}
				r, g, b = flattenBackground.BlendRgb(fg, float64(c.A)/255.0).Clamped().RGB255()
			}

			dst.Pix[i+0] = r
			dst.Pix[i+1] = g
			dst.Pix[i+2] = b
			dst.Pix[i+3] = 0xff
		}
	}
	return dst
}

// Invert flattens img to opaque RGB and replaces every channel value v with
// 255 - v. Applying it twice to an opaque image yields the original pixels.
func Invert(img image.Image) *image.RGBA {
	return effect.Invert(Flatten(img))
}
