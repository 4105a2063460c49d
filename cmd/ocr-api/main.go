package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/ocr-api/internal/config"
	"github.com/ironsheep/ocr-api/internal/ocr"
	"github.com/ironsheep/ocr-api/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("ocr-api %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("ocr-api - HTTP service that extracts text from images with Tesseract")
			fmt.Println()
			fmt.Println("Usage: ocr-api [--port N | --path SOCKET]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --port N         Listen on TCP port N (default 8080)")
			fmt.Println("  --path SOCKET    Listen on a UNIX socket instead of TCP")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  OCR_API_PORT, OCR_API_SOCKET     Listener, overridden by the flags")
			fmt.Println("  OCR_API_LOG_LEVEL=debug          Enable debug logging")
			fmt.Println("  OCR_API_TESSERACT_CMD            Tesseract binary (default tesseract)")
			fmt.Println("  OCR_API_TESSDATA_PREFIX          Directory holding *.traineddata")
			fmt.Println("  OCR_API_TMPDIR                   Directory for temporary images")
			fmt.Println("  OCR_API_OCR_TIMEOUT              Per-request recognition limit (default 60s)")
			fmt.Println("  OCR_API_MAX_BODY_BYTES           Request body limit (default 32MiB)")
			fmt.Println("  OCR_API_MAX_PIXELS               Decoded and scaled image limit")
			fmt.Println("  OCR_API_CONCURRENCY              Requests processed at once (default NumCPU)")
			fmt.Println("  OCR_API_STRICT_PARAMS=true       Reject unknown request fields")
			fmt.Println("  OCR_API_MORPH_KERNEL             Odd dilate/erode kernel size (default 1)")
			return
		}
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.Debug() {
		log.Printf("OCR API v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("Config: %+v", *cfg)
	}

	command := ocr.NewCommand(cfg.TesseractCmd, cfg.TempDir, cfg.TessdataPrefix, cfg.OCRTimeout)
	library := ocr.NewLibrary(cfg.TessdataPrefix, cfg.OCRTimeout)
	if info := command.Info(); !info.Available {
		log.Printf("Warning: %s unavailable: %s", info.Backend, info.Error)
	} else {
		log.Printf("Using %s %s", info.Backend, info.Version)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, command, library)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
