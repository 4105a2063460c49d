package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createGrayImage creates a grayscale image filled by fn.
func createGrayImage(width, height int, fn func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: fn(x, y)})
		}
	}
	return img
}

func TestOtsuThreshold_Bimodal(t *testing.T) {
	img := createGrayImage(20, 20, func(x, _ int) uint8 {
		if x < 8 {
			return 20
		}
		return 230
	})

	th, ok := OtsuThreshold(img)
	if !ok {
		t.Fatal("bimodal image should have a threshold")
	}
	if th < 20 || th >= 230 {
		t.Errorf("threshold %d does not separate 20 from 230", th)
	}

	bin := Binarize(img)
	if v := bin.GrayAt(3, 3).Y; v != 0 {
		t.Errorf("dark side: got %d, want 0", v)
	}
	if v := bin.GrayAt(15, 3).Y; v != 255 {
		t.Errorf("light side: got %d, want 255", v)
	}
}

func TestOtsuThreshold_ThreeLevels(t *testing.T) {
	// Mostly dark text pixels, a few mid-gray smudges, light paper.
	img := createGrayImage(30, 10, func(x, _ int) uint8 {
		switch {
		case x < 10:
			return 30
		case x < 12:
			return 120
		default:
			return 220
		}
	})

	bin := Binarize(img)
	if v := bin.GrayAt(0, 0).Y; v != 0 {
		t.Errorf("text: got %d, want 0", v)
	}
	if v := bin.GrayAt(29, 9).Y; v != 255 {
		t.Errorf("paper: got %d, want 255", v)
	}
}

func TestBinarize_Uniform(t *testing.T) {
	tests := []struct {
		value uint8
		want  uint8
	}{
		{200, 255},
		{128, 255},
		{127, 0},
		{0, 0},
	}

	for _, tt := range tests {
		img := createGrayImage(5, 5, func(_, _ int) uint8 { return tt.value })
		if _, ok := OtsuThreshold(img); ok {
			t.Errorf("uniform %d: threshold should not be found", tt.value)
		}
		if got := Binarize(img).GrayAt(2, 2).Y; got != tt.want {
			t.Errorf("uniform %d: got %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestBilateral_Uniform(t *testing.T) {
	img := createGrayImage(15, 15, func(_, _ int) uint8 { return 97 })

	out, err := Bilateral(img, DefaultBilateralParams())
	if err != nil {
		t.Fatalf("Bilateral failed: %v", err)
	}
	for _, v := range out.Pix {
		if v != 97 {
			t.Fatalf("uniform image changed: got %d, want 97", v)
		}
	}
}

func TestBilateral_PreservesEdges(t *testing.T) {
	img := createGrayImage(20, 20, func(x, _ int) uint8 {
		if x < 10 {
			return 0
		}
		return 255
	})

	out, err := Bilateral(img, DefaultBilateralParams())
	if err != nil {
		t.Fatalf("Bilateral failed: %v", err)
	}

	if v := out.GrayAt(9, 10).Y; v > 20 {
		t.Errorf("dark side of edge: got %d, want <= 20", v)
	}
	if v := out.GrayAt(10, 10).Y; v < 235 {
		t.Errorf("light side of edge: got %d, want >= 235", v)
	}
}

func TestBilateral_SmoothsNoise(t *testing.T) {
	// Low amplitude checkerboard noise on mid gray.
	img := createGrayImage(20, 20, func(x, y int) uint8 {
		if (x+y)%2 == 0 {
			return 110
		}
		return 130
	})

	out, err := Bilateral(img, DefaultBilateralParams())
	if err != nil {
		t.Fatalf("Bilateral failed: %v", err)
	}

	v := int(out.GrayAt(10, 10).Y)
	if v < 115 || v > 125 {
		t.Errorf("center: got %d, want close to 120", v)
	}
}

func TestBilateral_InvalidParams(t *testing.T) {
	img := createGrayImage(4, 4, func(_, _ int) uint8 { return 0 })

	bad := []BilateralParams{
		{Diameter: 0, SigmaColor: 75, SigmaSpace: 75},
		{Diameter: 4, SigmaColor: 75, SigmaSpace: 75},
		{Diameter: 5, SigmaColor: 0, SigmaSpace: 75},
		{Diameter: 5, SigmaColor: 75, SigmaSpace: -1},
	}
	for _, p := range bad {
		if _, err := Bilateral(img, p); err == nil {
			t.Errorf("params %+v should be rejected", p)
		}
	}
}

func TestMorph_IdentityKernel(t *testing.T) {
	img := createGrayImage(6, 6, func(x, y int) uint8 { return uint8(x*40 + y) })

	out, err := Morph(img, 1)
	if err != nil {
		t.Fatalf("Morph failed: %v", err)
	}
	if out == img {
		t.Error("Morph should return a new buffer")
	}
	for i := range img.Pix {
		if out.Pix[i] != img.Pix[i] {
			t.Fatalf("1x1 kernel changed byte %d: got %d, want %d", i, out.Pix[i], img.Pix[i])
		}
	}
}

func TestMorph_RemovesSpeck(t *testing.T) {
	img := createGrayImage(20, 20, func(x, y int) uint8 {
		if x == 3 && y == 3 {
			return 0 // isolated speck
		}
		if x >= 8 && x < 18 && y >= 8 && y < 18 {
			return 0 // solid block
		}
		return 255
	})

	out, err := Morph(img, 3)
	if err != nil {
		t.Fatalf("Morph failed: %v", err)
	}
	if v := out.GrayAt(3, 3).Y; v != 255 {
		t.Errorf("speck: got %d, want 255", v)
	}
	if v := out.GrayAt(13, 13).Y; v != 0 {
		t.Errorf("block center: got %d, want 0", v)
	}
}

func TestMorph_InvalidKernel(t *testing.T) {
	img := createGrayImage(4, 4, func(_, _ int) uint8 { return 0 })
	for _, k := range []int{0, -1, 2, 4} {
		if _, err := Morph(img, k); err == nil {
			t.Errorf("kernel %d should be rejected", k)
		}
	}
}

func TestGrayscale(t *testing.T) {
	g := Grayscale(createInMemoryImage(3, 3, color.White))
	if v := g.GrayAt(1, 1).Y; v < 254 {
		t.Errorf("white: got %d, want 255", v)
	}

	g = Grayscale(createInMemoryImage(3, 3, color.Black))
	if v := g.GrayAt(1, 1).Y; v != 0 {
		t.Errorf("black: got %d, want 0", v)
	}

	src := createGrayImage(3, 3, func(x, _ int) uint8 { return uint8(x * 50) })
	g = Grayscale(src)
	if g == src {
		t.Error("Grayscale of a gray image should copy")
	}
	if v := g.GrayAt(2, 0).Y; v != 100 {
		t.Errorf("gray passthrough: got %d, want 100", v)
	}
}
