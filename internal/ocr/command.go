package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// OutputExtension is the suffix Tesseract's text renderer adds to the
// output base name.
const OutputExtension = ".txt"

// waitDelay bounds how long Wait blocks on inherited pipes after the
// process has been killed.
const waitDelay = 2 * time.Second

// Command runs the external tesseract binary. Each call writes the image to
// its own uniquely named file in TempDir and removes both the input and the
// output file before returning.
type Command struct {
	// Path is the tesseract executable, looked up in PATH when it has no
	// separator.
	Path string

	// TempDir holds the per-request files; os.TempDir() when empty.
	TempDir string

	// TessdataPrefix is passed as --tessdata-dir unless the request names
	// its own.
	TessdataPrefix string

	// Timeout bounds a single run; zero means no limit beyond ctx.
	Timeout time.Duration
}

var _ Recognizer = (*Command)(nil)

// NewCommand returns a Command. An empty path means "tesseract".
func NewCommand(path, tempDir, tessdataPrefix string, timeout time.Duration) *Command {
	if path == "" {
		path = "tesseract"
	}
	return &Command{
		Path:           path,
		TempDir:        tempDir,
		TessdataPrefix: tessdataPrefix,
		Timeout:        timeout,
	}
}

// Recognize writes img as PNG, runs
//
//	tesseract [options] <stem>.png <stem> [configfiles...]
//
// and returns the contents of <stem>.txt without the trailing form feed.
func (c *Command) Recognize(ctx context.Context, img image.Image, config string) (string, error) {
	cfg, err := ParseConfig(config)
	if err != nil {
		return "", err
	}

	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	stem := filepath.Join(dir, "ocr-"+uuid.NewString())
	input := stem + ".png"
	output := stem + OutputExtension
	defer func() {
		os.Remove(input)
		os.Remove(output)
	}()

	if err := writePNG(input, img); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRecognition, err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := cfg.Flags(c.TessdataPrefix)
	args = append(args, input, stem)
	args = append(args, cfg.ConfigFiles...)

	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		perr := &ProcessError{
			Args:     append([]string{c.Path}, args...),
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			perr.Err = ctxErr
		} else {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				perr.ExitCode = exitErr.ExitCode()
				perr.Err = nil
			}
		}
		return "", perr
	}

	text, err := os.ReadFile(output)
	if err != nil {
		return "", &ProcessError{
			Args:     append([]string{c.Path}, args...),
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      fmt.Errorf("no output file: %w", err),
		}
	}

	return cleanText(string(text)), nil
}

// writePNG creates path exclusively and encodes img into it.
func writePNG(path string, img image.Image) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp image: %w", err)
	}

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write temp image: %w", err)
	}
	return nil
}

// Info runs "tesseract --version" and reports the first line of output.
func (c *Command) Info() Info {
	info := Info{
		Backend:      "tesseract command",
		TessdataPath: c.TessdataPrefix,
	}

	path, err := exec.LookPath(c.Path)
	if err != nil {
		info.Error = err.Error()
		return info
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		info.Error = fmt.Sprintf("failed to run %s --version: %v", path, err)
		return info
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	info.Available = true
	info.Version = strings.TrimSpace(strings.TrimPrefix(line, "tesseract"))
	return info
}
