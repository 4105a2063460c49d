package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ironsheep/ocr-api/internal/imaging"
	"github.com/ironsheep/ocr-api/internal/ocr"
)

// handleImageToString runs one request through
// validate -> decode -> preprocess -> recognize.
//
// Every failure is terminal for the request and maps to one envelope:
//
//	body not a non-empty JSON object   400 Bad Request
//	body over MaxBodyBytes             413
//	field validation                   422 Validation Errors
//	undecodable image                  400 It is not a valid image
//	image over MaxPixels               400 Image is too large
//	preprocessing                      500 Image preprocessing failed
//	recognition                        500 Text recognition failed
//	recognition timeout                504 Text recognition timed out
func (s *Server) handleImageToString(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeEnvelope(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", StatusError, nil)
			return
		}
		s.debugf("Failed to read request body: %v", err)
		writeBadRequest(w)
		return
	}

	params, details, err := parseParams(body, s.cfg.StrictParams)
	if err != nil {
		s.debugf("Rejected request body: %v", err)
		writeBadRequest(w)
		return
	}
	if len(details) > 0 {
		writeValidationErrors(w, details)
		return
	}

	if err := s.sem.Acquire(r.Context(), 1); err != nil {
		// Client went away while queued.
		s.debugf("Request abandoned while waiting for a worker: %v", err)
		return
	}
	defer s.sem.Release(1)

	s.metrics.inFlight.Inc()
	defer s.metrics.inFlight.Dec()

	text, failure := s.recognize(r.Context(), params)
	if failure != nil {
		if len(failure.details) > 0 {
			writeValidationErrors(w, failure.details)
			return
		}
		writeError(w, failure.status, failure.message)
		return
	}

	writeEnvelope(w, http.StatusOK, "All OK", StatusSuccess, OutputData{Output: text})
}

// pipelineError is the response for a request that failed after
// validation.
type pipelineError struct {
	status  int
	message string
	details []FieldError
}

func fail(status int, message string) *pipelineError {
	return &pipelineError{status: status, message: message}
}

// recognize runs the image pipeline and returns the text or the failure to
// respond with.
func (s *Server) recognize(ctx context.Context, p *Params) (string, *pipelineError) {
	start := time.Now()
	decoded, err := imaging.Decode(p.Image, s.cfg.MaxPixels)
	s.metrics.observeStage(stageDecode, time.Since(start))
	if err != nil {
		s.debugf("Decode failed: %v", err)
		if errors.Is(err, imaging.ErrImageTooLarge) {
			return "", fail(http.StatusBadRequest, "Image is too large")
		}
		return "", fail(http.StatusBadRequest, "It is not a valid image")
	}
	s.debugf("Decoded %s %dx%d (%s, alpha=%v, %d bytes)",
		decoded.Info.Format, decoded.Info.Width, decoded.Info.Height,
		decoded.Info.ColorDepth, decoded.Info.HasAlpha, decoded.Info.SizeBytes)

	opts := imaging.Options{
		Resize:      p.Resize,
		Resample:    p.Resample,
		Invert:      p.Invert,
		Improve:     p.Improve,
		MorphKernel: s.cfg.MorphKernel,
		Bilateral:   imaging.DefaultBilateralParams(),
		MaxPixels:   s.cfg.MaxPixels,
		Observe: func(stage string, elapsed time.Duration) {
			s.metrics.observeStage(stage, elapsed)
			s.debugf("Stage %s took %s", stage, elapsed)
		},
	}
	img, err := imaging.Preprocess(decoded.Image, opts)
	if err != nil {
		log.Printf("Preprocessing failed: %v", err)
		return "", fail(http.StatusInternalServerError, "Image preprocessing failed")
	}

	recognizer := s.library
	if p.Native {
		recognizer = s.command
	}

	start = time.Now()
	text, err := recognizer.Recognize(ctx, img, p.Config)
	s.metrics.observeStage(stageRecognize, time.Since(start))
	if err != nil {
		log.Printf("Recognition failed (native=%v): %v", p.Native, err)
		switch {
		case errors.Is(err, ocr.ErrInvalidConfig):
			return "", &pipelineError{
				status:  http.StatusUnprocessableEntity,
				details: []FieldError{{Loc: []string{"config"}, Msg: configMessage(err), Type: "value_error.config", Input: p.Config}},
			}
		case errors.Is(err, context.DeadlineExceeded):
			return "", fail(http.StatusGatewayTimeout, "Text recognition timed out")
		}
		return "", fail(http.StatusInternalServerError, "Text recognition failed")
	}

	s.debugf("Recognized %d characters in %s", len(text), time.Since(start))
	return text, nil
}

// HealthData is the data of a /healthz response.
type HealthData struct {
	Command ocr.Info `json:"command"`
	Library ocr.Info `json:"library"`
}

// handleHealth reports the availability of both OCR backends. The service
// is healthy when the default (command) backend is available.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, strings.Join([]string{http.MethodGet, http.MethodHead}, ", "))
		return
	}

	data := HealthData{
		Command: s.command.Info(),
		Library: s.library.Info(),
	}
	if !data.Command.Available {
		writeEnvelope(w, http.StatusServiceUnavailable, "OCR unavailable", StatusError, data)
		return
	}
	writeEnvelope(w, http.StatusOK, "All OK", StatusSuccess, data)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.debugf("Not found: %s %s", r.Method, r.URL.Path)
	writeNotFound(w)
}

// recoverer turns a handler panic into the 500 envelope.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Printf("Panic serving %s %s: %v\n%s", r.Method, r.URL.Path, v, debug.Stack())
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) debugf(format string, args ...any) {
	if s.cfg.Debug() {
		log.Output(2, fmt.Sprintf(format, args...))
	}
}
