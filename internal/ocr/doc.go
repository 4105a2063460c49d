// Package ocr turns preprocessed images into text using Tesseract.
//
// Two backends implement Recognizer:
//
//   - Command runs the tesseract executable. The image is written to a
//     uniquely named PNG in a temp directory, tesseract writes
//     "<stem>.txt" next to it, and both files are removed afterwards. The
//     run is bounded by a timeout and killed when it expires.
//   - Library calls libtesseract through gosseract. It needs cgo; builds
//     without cgo get a stub that reports ErrLibraryUnavailable.
//
// # Prerequisites
//
// The Command backend needs tesseract in PATH (or an explicit path):
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The Library backend additionally needs the libtesseract and leptonica
// development headers at build time (libtesseract-dev, libleptonica-dev).
//
// # Config Strings
//
// Both backends accept the same config string, a whitespace separated list
// of Tesseract options. ParseConfig validates it before anything runs, so a
// malformed option never reaches the engine:
//
//	-l eng+deu --psm 6 -c tessedit_char_whitelist=0123456789 digits
//
// Options are passed to the command as separate argv entries, never
// through a shell.
//
// # Errors
//
// Command failures are reported as *ProcessError carrying argv, exit code
// and stderr; it matches ErrRecognitionProcess with errors.Is. A run that
// outlives its timeout also matches context.DeadlineExceeded. Library
// failures wrap ErrRecognition.
package ocr
