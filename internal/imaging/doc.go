// Package imaging decodes client-supplied images and prepares them for OCR.
//
// The package has two halves:
//
//   - Decode turns a base64 payload into an image.Image, rejecting bad
//     encodings (ErrInvalidImageEncoding), unknown or corrupt containers
//     (ErrInvalidImageFormat) and oversized images (ErrImageTooLarge).
//   - Preprocess runs a fixed sequence of optional transforms that make
//     printed text easier for Tesseract to read.
//
// # Pipeline
//
// Stages run in this order, each only when enabled by Options:
//
//  1. resize: scale both axes by Options.Resize with the chosen Resample
//     filter. Output sides are round(side * factor), at least one pixel.
//  2. invert: flatten onto white, then 255 - v for every RGB channel.
//  3. improve:
//     upscale (x1.2, Catmull-Rom), grayscale, morph (dilate then erode),
//     bilateral (edge-preserving smoothing), binarize (Otsu's threshold).
//
// Every stage allocates its own output. The input image is never modified,
// so a Decoded image can be preprocessed more than once.
//
// # Pixel Layouts
//
// Stages declare which Channels they accept: color, gray or binary. The
// layout is checked before each stage runs and a mismatch fails with a
// *PreprocessingError wrapping ErrPreprocessing. Binarized output uses the
// Binary type so it cannot be mistaken for ordinary grayscale.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner.
// Border handling in neighbourhood filters replicates edge pixels.
//
// # Thread Safety
//
// All functions are stateless and may be called concurrently on different
// images.
package imaging
