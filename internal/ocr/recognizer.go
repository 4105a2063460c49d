package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
)

var (
	// ErrRecognition is returned when the OCR engine fails to produce text.
	ErrRecognition = errors.New("text recognition failed")

	// ErrRecognitionProcess is wrapped by every *ProcessError.
	ErrRecognitionProcess = errors.New("ocr process failed")

	// ErrInvalidConfig is returned when a config string cannot be turned into
	// Tesseract options.
	ErrInvalidConfig = errors.New("invalid ocr config")

	// ErrLibraryUnavailable is returned by the in-process recognizer in
	// builds without cgo.
	ErrLibraryUnavailable = errors.New("in-process OCR not available; rebuild with cgo and libtesseract")
)

//go:generate mockgen -destination=mocks/mock_recognizer.go -package=mock_ocr . Recognizer

// Recognizer extracts text from an image.
//
// config is a whitespace separated list of Tesseract command line options
// (see ParseConfig). Implementations must be safe for concurrent use and
// must not retain img after returning.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, config string) (string, error)

	// Info reports whether the backend is usable and which engine version it
	// talks to.
	Info() Info
}

// Info contains information about an OCR backend.
type Info struct {
	Available    bool   `json:"available"`
	Version      string `json:"version,omitempty"`
	Error        string `json:"error,omitempty"`
	Backend      string `json:"backend"`
	TessdataPath string `json:"tessdata_path,omitempty"`
}

// ProcessError describes a failed run of the external OCR binary.
type ProcessError struct {
	// Args is the full argv of the failed command.
	Args []string

	// ExitCode is the process exit status, or -1 when the process did not
	// exit normally (not started, killed, output missing).
	ExitCode int

	// Stderr holds the trimmed standard error output.
	Stderr string

	Err error
}

func (e *ProcessError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", ErrRecognitionProcess)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, ": exit status %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Stderr != "" {
		fmt.Fprintf(&b, " - %s", e.Stderr)
	}
	return b.String()
}

func (e *ProcessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRecognitionProcess}
	}
	return []error{ErrRecognitionProcess, e.Err}
}

// cleanText drops the form feed Tesseract appends after the last page.
func cleanText(s string) string {
	return strings.TrimRight(s, "\f")
}
