package imaging

import (
	"image"
)

// Channels identifies the pixel layout a preprocessing stage operates on.
type Channels int

const (
	// ChannelsColor is any RGB(A), YCbCr or paletted image.
	ChannelsColor Channels = iota
	// ChannelsGray is a single-channel luminance image.
	ChannelsGray
	// ChannelsBinary is a two-level image produced by thresholding.
	ChannelsBinary
)

func (c Channels) String() string {
	switch c {
	case ChannelsColor:
		return "color"
	case ChannelsGray:
		return "gray"
	case ChannelsBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Binary is a two-level grayscale image: every pixel is 0 (black) or 255
// (white). It is a distinct type so later stages can refuse to run
// grayscale-only operations on already binarized data.
type Binary struct {
	*image.Gray
}

// ChannelsOf reports the pixel layout of img.
func ChannelsOf(img image.Image) Channels {
	switch img.(type) {
	case *Binary:
		return ChannelsBinary
	case *image.Gray, *image.Gray16:
		return ChannelsGray
	default:
		return ChannelsColor
	}
}

// grayFromRGBA copies the red channel of an RGBA image produced by a
// grayscale-preserving filter into a single-channel buffer.
func grayFromRGBA(src *image.RGBA) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Pix[dst.PixOffset(x, y)] = src.Pix[src.PixOffset(x, y)]
		}
	}
	return dst
}

// cloneGray returns a copy of src backed by its own buffer.
func cloneGray(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Bounds())
	for y := src.Rect.Min.Y; y < src.Rect.Max.Y; y++ {
		copy(dst.Pix[dst.PixOffset(src.Rect.Min.X, y):], src.Pix[src.PixOffset(src.Rect.Min.X, y):src.PixOffset(src.Rect.Max.X, y)])
	}
	return dst
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
