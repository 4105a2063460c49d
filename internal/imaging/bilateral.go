package imaging

import (
	"fmt"
	"image"
	"math"
)

// BilateralParams configures the edge-preserving smoothing filter.
type BilateralParams struct {
	// Diameter of the pixel neighbourhood. Must be odd and at least 1.
	Diameter int `json:"diameter"`

	// SigmaColor controls how different two intensities may be and still be
	// averaged together. Larger values smooth across stronger edges.
	SigmaColor float64 `json:"sigma_color"`

	// SigmaSpace controls how quickly the influence of a neighbour falls off
	// with distance.
	SigmaSpace float64 `json:"sigma_space"`
}

// DefaultBilateralParams returns the parameters tuned for scanned text:
// a 9 pixel neighbourhood with both sigmas at 75.
func DefaultBilateralParams() BilateralParams {
	return BilateralParams{
		Diameter:   9,
		SigmaColor: 75,
		SigmaSpace: 75,
	}
}

// Validate reports whether the parameters can be used by Bilateral.
func (p BilateralParams) Validate() error {
	if p.Diameter < 1 || p.Diameter%2 == 0 {
		return fmt.Errorf("bilateral diameter must be a positive odd size, got %d", p.Diameter)
	}
	if p.SigmaColor <= 0 || p.SigmaSpace <= 0 {
		return fmt.Errorf("bilateral sigmas must be positive, got color=%v space=%v", p.SigmaColor, p.SigmaSpace)
	}
	return nil
}

// Bilateral smooths a grayscale image while keeping edges sharp.
//
// Each output pixel is a weighted mean of its neighbours inside a circle of
// diameter p.Diameter. A neighbour's weight is the product of:
//
//	spatial: exp(-(dx² + dy²) / (2·SigmaSpace²))
//	range:   exp(-(Δintensity²) / (2·SigmaColor²))
//
// so pixels across a strong edge contribute almost nothing. Border pixels
// use clamped (replicated) edge values.
func Bilateral(src *image.Gray, p BilateralParams) (*image.Gray, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	radius := p.Diameter / 2

	// Precompute the spatial kernel over the circular neighbourhood.
	type tap struct {
		dx, dy int
		weight float64
	}
	taps := make([]tap, 0, p.Diameter*p.Diameter)
	spaceCoeff := -0.5 / (p.SigmaSpace * p.SigmaSpace)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			dist2 := float64(dx*dx + dy*dy)
			if math.Sqrt(dist2) > float64(radius) {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(dist2 * spaceCoeff)})
		}
	}

	// Range weights indexed by absolute intensity difference.
	var rangeWeight [256]float64
	colorCoeff := -0.5 / (p.SigmaColor * p.SigmaColor)
	for d := range rangeWeight {
		rangeWeight[d] = math.Exp(float64(d*d) * colorCoeff)
	}

	at := func(x, y int) int {
		px := clamp(x, 0, width-1) + bounds.Min.X
		py := clamp(y, 0, height-1) + bounds.Min.Y
		return int(src.Pix[src.PixOffset(px, py)])
	}

	dst := image.NewGray(bounds)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			center := at(x, y)
			var sum, norm float64
			for _, t := range taps {
				v := at(x+t.dx, y+t.dy)
				diff := v - center
				if diff < 0 {
					diff = -diff
				}
				w := t.weight * rangeWeight[diff]
				sum += w * float64(v)
				norm += w
			}
			dst.Pix[dst.PixOffset(x+bounds.Min.X, y+bounds.Min.Y)] = uint8(math.Round(sum / norm))
		}
	}
	return dst, nil
}
