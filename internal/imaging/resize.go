package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Resample selects the interpolation filter used by Resize. The numbering
// matches the integers clients already send: 0 nearest, 1 lanczos,
// 2 bilinear, 3 bicubic, 4 box, 5 hamming.
type Resample int

const (
	ResampleNearest Resample = iota
	ResampleLanczos
	ResampleBilinear
	ResampleBicubic
	ResampleBox
	ResampleHamming
)

// Valid reports whether r names a known filter.
func (r Resample) Valid() bool {
	return r >= ResampleNearest && r <= ResampleHamming
}

func (r Resample) String() string {
	switch r {
	case ResampleNearest:
		return "nearest"
	case ResampleLanczos:
		return "lanczos"
	case ResampleBilinear:
		return "bilinear"
	case ResampleBicubic:
		return "bicubic"
	case ResampleBox:
		return "box"
	case ResampleHamming:
		return "hamming"
	default:
		return fmt.Sprintf("resample(%d)", int(r))
	}
}

func (r Resample) filter() imaging.ResampleFilter {
	switch r {
	case ResampleNearest:
		return imaging.NearestNeighbor
	case ResampleBilinear:
		return imaging.Linear
	case ResampleBicubic:
		return imaging.CatmullRom
	case ResampleBox:
		return imaging.Box
	case ResampleHamming:
		return imaging.Hamming
	default:
		return imaging.Lanczos
	}
}

// ScaledSize returns the dimensions of a w x h image scaled by factor.
// Each side is round(side * factor), rounding half away from zero, and never
// smaller than one pixel.
func ScaledSize(w, h int, factor float64) (int, int) {
	sw := int(math.Round(float64(w) * factor))
	sh := int(math.Round(float64(h) * factor))
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

// Resize scales img by factor in both axes using the given filter.
//
// A factor of exactly 1 returns img unchanged. The result of any other
// factor is a new *image.NRGBA; img is never modified.
func Resize(img image.Image, factor float64, resample Resample) (image.Image, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return nil, fmt.Errorf("resize factor must be positive, got %v", factor)
	}
	if !resample.Valid() {
		return nil, fmt.Errorf("unknown resample filter %d", int(resample))
	}
	if factor == 1 {
		return img, nil
	}

	bounds := img.Bounds()
	w, h := ScaledSize(bounds.Dx(), bounds.Dy(), factor)
	return imaging.Resize(img, w, h, resample.filter()), nil
}
