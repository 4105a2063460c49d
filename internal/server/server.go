package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ironsheep/ocr-api/internal/config"
	"github.com/ironsheep/ocr-api/internal/ocr"
)

// ShutdownTimeout bounds how long in-flight requests may finish after the
// run context is cancelled.
const ShutdownTimeout = 30 * time.Second

// Server serves the OCR HTTP API.
type Server struct {
	cfg     *config.Config
	command ocr.Recognizer
	library ocr.Recognizer
	sem     *semaphore.Weighted
	metrics *metrics
	handler http.Handler
}

// New creates a server. command handles native requests, library handles
// the rest.
func New(cfg *config.Config, command, library ocr.Recognizer) *Server {
	s := &Server{
		cfg:     cfg,
		command: command,
		library: library,
		sem:     semaphore.NewWeighted(int64(max(cfg.Concurrency, 1))),
		metrics: newMetrics(),
	}

	mux := http.NewServeMux()
	mux.Handle("/imagetostring", s.metrics.instrument(recoverer(http.HandlerFunc(s.handleImageToString))))
	mux.Handle("/healthz", recoverer(http.HandlerFunc(s.handleHealth)))
	mux.Handle("/metrics", s.metrics.handler())
	mux.HandleFunc("/", s.handleNotFound)
	s.handler = mux

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen opens the configured listener: a UNIX socket when SocketPath is
// set, TCP on Port otherwise. A stale socket file is replaced.
func (s *Server) Listen() (net.Listener, error) {
	if s.cfg.SocketPath == "" {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
		if err != nil {
			return nil, fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
		}
		return ln, nil
	}

	if fi, err := os.Stat(s.cfg.SocketPath); err == nil && fi.Mode()&os.ModeSocket != 0 {
		if err := os.Remove(s.cfg.SocketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}
	ln, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.cfg.SocketPath, err)
	}
	return ln, nil
}

// Run listens and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is cancelled, then drains
// in-flight requests for up to ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
