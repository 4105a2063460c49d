package imaging

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"strings"
	"time"
)

// ErrPreprocessing is the sentinel wrapped by every PreprocessingError.
var ErrPreprocessing = errors.New("image preprocessing failed")

// PreprocessingError reports the stage that failed and the pixel layout it
// was given.
type PreprocessingError struct {
	Stage string
	Got   Channels
	Want  []Channels
	Err   error
}

func (e *PreprocessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("preprocessing stage %s: %v", e.Stage, e.Err)
	}
	want := make([]string, len(e.Want))
	for i, c := range e.Want {
		want[i] = c.String()
	}
	return fmt.Sprintf("preprocessing stage %s: got %s image, want %s", e.Stage, e.Got, strings.Join(want, " or "))
}

func (e *PreprocessingError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPreprocessing}
	}
	return []error{ErrPreprocessing, e.Err}
}

// Options selects and tunes the preprocessing stages.
type Options struct {
	// Resize scales both axes; 1 skips the stage.
	Resize float64

	// Resample picks the filter used by the resize stage.
	Resample Resample

	// Invert flattens to RGB and inverts every channel.
	Invert bool

	// Improve runs upscale, grayscale, morph, bilateral and binarize.
	Improve bool

	// MorphKernel is the structuring element size for the morph stage.
	MorphKernel int

	// Bilateral configures the smoothing applied before binarization.
	Bilateral BilateralParams

	// MaxPixels bounds the output of every stage that enlarges the image.
	// Zero disables the check.
	MaxPixels int

	// Observe, when set, is called after each stage with its duration.
	Observe func(stage string, elapsed time.Duration)
}

// DefaultOptions returns the options used when a request does not override
// them.
func DefaultOptions() Options {
	return Options{
		Resize:      2,
		Resample:    ResampleLanczos,
		Improve:     true,
		MorphKernel: DefaultMorphKernel,
		Bilateral:   DefaultBilateralParams(),
	}
}

// Stage names reported in errors and to Options.Observe.
const (
	StageResize    = "resize"
	StageInvert    = "invert"
	StageUpscale   = "upscale"
	StageGrayscale = "grayscale"
	StageMorph     = "morph"
	StageBilateral = "bilateral"
	StageBinarize  = "binarize"
)

type stage struct {
	name    string
	accepts []Channels
	run     func(image.Image) (image.Image, error)
}

// Preprocess applies, in order and each only when enabled: resize, invert,
// then the improve stages (upscale, grayscale, morph, bilateral, binarize).
//
// img is never modified. The pixel layout is checked before every stage, so
// for example running the improve stages on a Binary image fails with a
// PreprocessingError instead of producing garbage.
func Preprocess(img image.Image, opts Options) (image.Image, error) {
	var stages []stage
	if opts.Resize != 1 {
		stages = append(stages, resizeStage(opts))
	}
	if opts.Invert {
		stages = append(stages, stage{
			name:    StageInvert,
			accepts: []Channels{ChannelsColor, ChannelsGray},
			run: func(img image.Image) (image.Image, error) {
				return Invert(img), nil
			},
		})
	}
	if opts.Improve {
		stages = append(stages, improveStages(opts)...)
	}
	return runStages(img, stages, opts.Observe)
}

// Improve runs only the improve stages on img.
func Improve(img image.Image, opts Options) (*Binary, error) {
	out, err := runStages(img, improveStages(opts), opts.Observe)
	if err != nil {
		return nil, err
	}
	return out.(*Binary), nil
}

func runStages(img image.Image, stages []stage, observe func(string, time.Duration)) (image.Image, error) {
	for _, st := range stages {
		got := ChannelsOf(img)
		if !slices.Contains(st.accepts, got) {
			return nil, &PreprocessingError{Stage: st.name, Got: got, Want: st.accepts}
		}

		start := time.Now()
		out, err := st.run(img)
		if err != nil {
			return nil, &PreprocessingError{Stage: st.name, Got: got, Want: st.accepts, Err: err}
		}
		if observe != nil {
			observe(st.name, time.Since(start))
		}
		img = out
	}
	return img, nil
}

func resizeStage(opts Options) stage {
	return stage{
		name:    StageResize,
		accepts: []Channels{ChannelsColor, ChannelsGray},
		run: func(img image.Image) (image.Image, error) {
			if err := checkScaledSize(img, opts.Resize, opts.MaxPixels); err != nil {
				return nil, err
			}
			return Resize(img, opts.Resize, opts.Resample)
		},
	}
}

func improveStages(opts Options) []stage {
	return []stage{
		{
			name:    StageUpscale,
			accepts: []Channels{ChannelsColor, ChannelsGray},
			run: func(img image.Image) (image.Image, error) {
				if err := checkScaledSize(img, UpscaleFactor, opts.MaxPixels); err != nil {
					return nil, err
				}
				return Upscale(img), nil
			},
		},
		{
			name:    StageGrayscale,
			accepts: []Channels{ChannelsColor, ChannelsGray},
			run: func(img image.Image) (image.Image, error) {
				return Grayscale(img), nil
			},
		},
		{
			name:    StageMorph,
			accepts: []Channels{ChannelsGray},
			run: func(img image.Image) (image.Image, error) {
				return Morph(asGray(img), opts.MorphKernel)
			},
		},
		{
			name:    StageBilateral,
			accepts: []Channels{ChannelsGray},
			run: func(img image.Image) (image.Image, error) {
				return Bilateral(asGray(img), opts.Bilateral)
			},
		},
		{
			name:    StageBinarize,
			accepts: []Channels{ChannelsGray},
			run: func(img image.Image) (image.Image, error) {
				return Binarize(asGray(img)), nil
			},
		},
	}
}

// asGray narrows a ChannelsGray image to *image.Gray, converting 16-bit
// sources.
func asGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	return Grayscale(img)
}

func checkScaledSize(img image.Image, factor float64, maxPixels int) error {
	if maxPixels <= 0 || factor <= 0 {
		return nil
	}
	bounds := img.Bounds()
	w, h := ScaledSize(bounds.Dx(), bounds.Dy(), factor)
	if w*h > maxPixels {
		return fmt.Errorf("scaled size %dx%d is more than %d pixels", w, h, maxPixels)
	}
	return nil
}
