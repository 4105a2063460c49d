//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Library runs Tesseract in process through libtesseract. A fresh client is
// created per call, so a Library is safe for concurrent use.
type Library struct {
	// TessdataPrefix overrides the compiled-in tessdata location.
	TessdataPrefix string

	// Timeout bounds how long Recognize waits for a result. The engine
	// itself cannot be interrupted; an abandoned run finishes in the
	// background and its client is closed then.
	Timeout time.Duration

	clientFactory func() *gosseract.Client
}

var _ Recognizer = (*Library)(nil)

// NewLibrary returns a Library recognizer.
func NewLibrary(tessdataPrefix string, timeout time.Duration) *Library {
	return &Library{
		TessdataPrefix: tessdataPrefix,
		Timeout:        timeout,
		clientFactory:  gosseract.NewClient,
	}
}

type libraryResult struct {
	text string
	err  error
}

// Recognize encodes img as PNG and hands it to libtesseract. "--oem" is
// accepted but has no effect because the binding initializes the engine
// with its default mode. At most one config file may be named.
func (l *Library) Recognize(ctx context.Context, img image.Image, config string) (string, error) {
	cfg, err := ParseConfig(config)
	if err != nil {
		return "", err
	}
	if len(cfg.ConfigFiles) > 1 {
		return "", fmt.Errorf("%w: in-process OCR accepts one config file, got %d", ErrInvalidConfig, len(cfg.ConfigFiles))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("%w: failed to encode image: %v", ErrRecognition, err)
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	done := make(chan libraryResult, 1)
	go func() {
		text, err := l.run(cfg, buf.Bytes())
		done <- libraryResult{text, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("%w: %v", ErrRecognition, res.err)
		}
		return cleanText(res.text), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrRecognition, ctx.Err())
	}
}

func (l *Library) run(cfg *Config, data []byte) (string, error) {
	client := l.clientFactory()
	defer client.Close()

	tessdata := cfg.TessdataDir
	if tessdata == "" {
		tessdata = l.TessdataPrefix
	}
	if tessdata != "" {
		if err := client.SetTessdataPrefix(tessdata); err != nil {
			return "", fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	if len(cfg.Languages) > 0 {
		if err := client.SetLanguage(cfg.Languages...); err != nil {
			return "", fmt.Errorf("failed to set language: %w", err)
		}
	}

	if cfg.PageSegMode >= 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
			return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}

	if cfg.DPI > 0 {
		if err := client.SetVariable("user_defined_dpi", strconv.Itoa(cfg.DPI)); err != nil {
			return "", fmt.Errorf("failed to set dpi: %w", err)
		}
	}

	for _, v := range cfg.Variables {
		if err := client.SetVariable(gosseract.SettableVariable(v.Name), v.Value); err != nil {
			return "", fmt.Errorf("failed to set variable %s: %w", v.Name, err)
		}
	}

	if len(cfg.ConfigFiles) == 1 {
		path, err := resolveConfigFile(tessdata, cfg.ConfigFiles[0])
		if err != nil {
			return "", err
		}
		if err := client.SetConfigFile(path); err != nil {
			return "", fmt.Errorf("failed to set config file: %w", err)
		}
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// resolveConfigFile maps a config name to a file the binding can open:
// the name itself when it is an existing path, otherwise
// <tessdata>/configs/<name>.
func resolveConfigFile(tessdata, name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	if tessdata == "" {
		tessdata = os.Getenv("TESSDATA_PREFIX")
	}
	if tessdata == "" {
		return "", fmt.Errorf("%w: config file %q not found and no tessdata directory is set", ErrInvalidConfig, name)
	}

	path := filepath.Join(tessdata, "configs", name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: config file %q not found in %s", ErrInvalidConfig, name, filepath.Dir(path))
	}
	return path, nil
}

// Info reports the libtesseract version.
func (l *Library) Info() Info {
	client := l.clientFactory()
	defer client.Close()

	return Info{
		Available:    true,
		Version:      client.Version(),
		Backend:      "gosseract",
		TessdataPath: l.TessdataPrefix,
	}
}
