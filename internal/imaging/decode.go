package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

var (
	// ErrInvalidImageEncoding is returned when the payload is not valid base64.
	ErrInvalidImageEncoding = errors.New("invalid base64 image encoding")

	// ErrInvalidImageFormat is returned when the decoded bytes are not a
	// recognized or intact image container.
	ErrInvalidImageFormat = errors.New("unrecognized or corrupt image format")

	// ErrImageTooLarge is returned when the image header declares more pixels
	// than the configured limit.
	ErrImageTooLarge = errors.New("image exceeds pixel limit")
)

// Info contains metadata about a decoded image.
type Info struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the container name reported by the registered decoder
	// ("png", "jpeg", "gif", "bmp", "tiff", "webp").
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the pixel type carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the size of the encoded image after base64 decoding.
	SizeBytes int `json:"size_bytes"`
}

// Decoded is an in-memory raster together with its metadata. It belongs to a
// single request and is never shared.
type Decoded struct {
	Image image.Image
	Info  Info
}

// Decode turns a base64 payload into a raster image.
//
// Surrounding whitespace, embedded line breaks and an optional
// "data:<mime>;base64," prefix are accepted. Anything else outside the
// standard base64 alphabet, or bad padding, fails with
// ErrInvalidImageEncoding. Bytes that no registered decoder recognizes fail
// with ErrInvalidImageFormat.
//
// maxPixels bounds width*height as declared by the image header; zero or a
// negative value disables the check.
func Decode(encoded string, maxPixels int) (*Decoded, error) {
	data, err := DecodeBase64(encoded)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data, maxPixels)
}

// DecodeBase64 decodes the payload of an image field into raw bytes.
func DecodeBase64(encoded string) ([]byte, error) {
	s := stripDataURI(strings.TrimSpace(encoded))
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImageEncoding)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageEncoding, err)
	}
	return data, nil
}

// DecodeBytes decodes an image container held in memory.
func DecodeBytes(data []byte, maxPixels int) (*Decoded, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrInvalidImageFormat, cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d is more than %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}

	return &Decoded{
		Image: img,
		Info:  describe(img, format, len(data)),
	}, nil
}

// stripDataURI removes a "data:<mime>;base64," prefix if present.
func stripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
		return s
	}
	return s[comma+1:]
}

// describe reports metadata for a decoded image.
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func describe(img image.Image, format string, size int) Info {
	bounds := img.Bounds()

	hasAlpha := false
	colorDepth := "8-bit"
	switch m := img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				hasAlpha = true
				break
			}
		}
	}

	return Info{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     format,
		ColorDepth: colorDepth,
		HasAlpha:   hasAlpha,
		SizeBytes:  size,
	}
}
