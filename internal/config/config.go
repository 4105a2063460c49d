// Package config loads the service settings from command line flags and
// OCR_API_* environment variables. Flags win over the environment, which
// wins over the built-in defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/ocr-api/internal/imaging"
)

// Defaults.
const (
	DefaultPort         = 8080
	DefaultTesseractCmd = "tesseract"
	DefaultOCRTimeout   = 60 * time.Second
	DefaultMaxBodyBytes = 32 << 20
	DefaultMaxPixels    = 40_000_000
)

// Config holds the runtime settings of the service.
type Config struct {
	// Port is the TCP port to listen on when SocketPath is empty.
	Port int

	// SocketPath, when set, makes the server listen on a UNIX socket
	// instead of TCP.
	SocketPath string

	// LogLevel is "debug" or empty.
	LogLevel string

	// TesseractCmd is the executable used for native requests.
	TesseractCmd string

	// TessdataPrefix is passed to both OCR backends when set.
	TessdataPrefix string

	// TempDir holds the per-request image and output files.
	TempDir string

	// OCRTimeout bounds a single recognition.
	OCRTimeout time.Duration

	// MaxBodyBytes limits the request body size.
	MaxBodyBytes int64

	// MaxPixels limits decoded and resized image area.
	MaxPixels int

	// Concurrency is the number of requests allowed in the image pipeline
	// at once.
	Concurrency int

	// StrictParams rejects unknown request fields.
	StrictParams bool

	// MorphKernel is the side of the square dilate/erode kernel.
	MorphKernel int
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

// Listen describes the listen target for log lines.
func (c *Config) Listen() string {
	if c.SocketPath != "" {
		return "unix:" + c.SocketPath
	}
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envParser collects the first malformed environment value.
type envParser struct {
	err error
}

func (p *envParser) int(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %s %q: %w", k, v, err)
		}
		return def
	}
	return n
}

func (p *envParser) bool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %s %q: %w", k, v, err)
		}
		return def
	}
	return b
}

func (p *envParser) duration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %s %q: %w", k, v, err)
		}
		return def
	}
	return d
}

// Load reads the environment and then parses args (without the program
// name). Invalid values in either place are reported as errors.
func Load(args []string) (*Config, error) {
	var env envParser

	cfg := &Config{
		Port:           env.int("OCR_API_PORT", DefaultPort),
		SocketPath:     os.Getenv("OCR_API_SOCKET"),
		LogLevel:       os.Getenv("OCR_API_LOG_LEVEL"),
		TesseractCmd:   getEnv("OCR_API_TESSERACT_CMD", DefaultTesseractCmd),
		TessdataPrefix: os.Getenv("OCR_API_TESSDATA_PREFIX"),
		TempDir:        getEnv("OCR_API_TMPDIR", os.TempDir()),
		OCRTimeout:     env.duration("OCR_API_OCR_TIMEOUT", DefaultOCRTimeout),
		MaxBodyBytes:   int64(env.int("OCR_API_MAX_BODY_BYTES", DefaultMaxBodyBytes)),
		MaxPixels:      env.int("OCR_API_MAX_PIXELS", DefaultMaxPixels),
		Concurrency:    env.int("OCR_API_CONCURRENCY", runtime.NumCPU()),
		StrictParams:   env.bool("OCR_API_STRICT_PARAMS", false),
		MorphKernel:    env.int("OCR_API_MORPH_KERNEL", imaging.DefaultMorphKernel),
	}
	if env.err != nil {
		return nil, env.err
	}

	fs := flag.NewFlagSet("ocr-api", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on")
	fs.StringVar(&cfg.SocketPath, "path", cfg.SocketPath, "UNIX socket path to listen on instead of TCP")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.SocketPath == "" && (c.Port < 1 || c.Port > 65535) {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", c.Port))
	}
	if c.TesseractCmd == "" {
		errs = append(errs, errors.New("tesseract command must not be empty"))
	}
	if c.OCRTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ocr timeout must be positive, got %s", c.OCRTimeout))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes))
	}
	if c.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("max pixels must be positive, got %d", c.MaxPixels))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.MorphKernel < 1 || c.MorphKernel%2 == 0 {
		errs = append(errs, fmt.Errorf("morph kernel must be a positive odd number, got %d", c.MorphKernel))
	}
	return errors.Join(errs...)
}
