// Package server implements the HTTP API of the OCR service.
//
// # Endpoints
//
//   - POST /imagetostring: extract text from a base64 encoded image
//   - GET /healthz: availability and version of both OCR backends
//   - GET /metrics: Prometheus metrics
//
// Any other path answers 404 with the standard envelope.
//
// # Request
//
//	{
//	  "image":    "<base64>",  required
//	  "config":   "--psm 6",   Tesseract options, default ""
//	  "resize":   2,           scale factor in (0, 10], default 2
//	  "resample": 1,           0 nearest, 1 lanczos, 2 bilinear,
//	                           3 bicubic, 4 box, 5 hamming; default 1
//	  "native":   true,        true: tesseract binary, false: libtesseract
//	  "improve":  true,        upscale, grayscale, denoise, binarize
//	  "invert":   false        invert colors before improving
//	}
//
// All field errors are collected and returned together:
//
//	422 {"message": "Validation Errors",
//	     "data": {"details": [{"loc": ["image"], "msg": "field required",
//	                           "type": "value_error.missing"}]},
//	     "status": "error"}
//
// # Response
//
// Every response uses the same envelope:
//
//	{"message": "All OK", "data": {"output": "..."}, "status": "success"}
//
// status is "success", "error", or "unknown" (for 400/404/405 on
// malformed requests).
//
// # Concurrency
//
// Each request runs on its own goroutine. The image pipeline is CPU bound
// and may start a subprocess, so at most Config.Concurrency requests run it
// at a time; the rest wait and give up their slot as soon as the client
// disconnects. Requests share no mutable state besides the metrics.
package server
