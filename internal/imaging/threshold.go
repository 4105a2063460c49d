package imaging

import (
	"image"
)

// OtsuThreshold picks the global intensity cutoff that maximizes the
// between-class variance of src's histogram.
//
// The returned t splits pixels into [0, t] (black) and [t+1, 255] (white).
// ok is false when the image has a single intensity level and therefore no
// meaningful split.
func OtsuThreshold(src *image.Gray) (t uint8, ok bool) {
	var hist [256]int
	bounds := src.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := src.Pix[src.PixOffset(bounds.Min.X, y):src.PixOffset(bounds.Max.X, y)]
		for _, v := range row {
			hist[v]++
		}
	}

	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0, false
	}

	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i * n)
	}

	var (
		weightBg int
		sumBg    float64
		best     float64
	)
	for i := 0; i < 255; i++ {
		weightBg += hist[i]
		sumBg += float64(i * hist[i])
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}

		meanBg := sumBg / float64(weightBg)
		meanFg := (sumAll - sumBg) / float64(weightFg)
		between := float64(weightBg) * float64(weightFg) * (meanBg - meanFg) * (meanBg - meanFg)
		if between > best {
			best = between
			t = uint8(i)
		}
	}
	return t, best > 0
}

// Binarize thresholds src at its Otsu level. Pixels above the cutoff become
// white (255), the rest black (0). A single-level image maps to white when
// its intensity is at least 128 and to black otherwise.
func Binarize(src *image.Gray) *Binary {
	level := 128
	if t, ok := OtsuThreshold(src); ok {
		level = int(t) + 1
	}

	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if int(src.Pix[src.PixOffset(x, y)]) >= level {
				dst.Pix[dst.PixOffset(x, y)] = 0xff
			}
		}
	}
	return &Binary{Gray: dst}
}
