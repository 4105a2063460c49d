//go:build !cgo

package ocr

import (
	"context"
	"image"
	"time"
)

// Library is unavailable in builds without cgo. Every call fails with
// ErrLibraryUnavailable so the service still starts and serves native=true
// requests.
type Library struct {
	TessdataPrefix string
	Timeout        time.Duration
}

var _ Recognizer = (*Library)(nil)

// NewLibrary returns a Library that always fails.
func NewLibrary(tessdataPrefix string, timeout time.Duration) *Library {
	return &Library{TessdataPrefix: tessdataPrefix, Timeout: timeout}
}

// Recognize returns ErrLibraryUnavailable after validating config.
func (l *Library) Recognize(_ context.Context, _ image.Image, config string) (string, error) {
	if _, err := ParseConfig(config); err != nil {
		return "", err
	}
	return "", ErrLibraryUnavailable
}

// Info reports the library backend as unavailable.
func (l *Library) Info() Info {
	return Info{
		Available: false,
		Error:     ErrLibraryUnavailable.Error(),
		Backend:   "gosseract",
	}
}
