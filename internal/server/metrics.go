package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels recorded in addition to the preprocessing stages.
const (
	stageDecode    = "decode"
	stageRecognize = "recognize"
)

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	stages   *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// newMetrics registers the service collectors on a private registry.
func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ocr_api_requests_total",
			Help: "Image to string requests by HTTP status code.",
		}, []string{"status"}),
		stages: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ocr_api_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"stage"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ocr_api_in_flight",
			Help: "Requests currently inside the image pipeline.",
		}),
	}
}

func (m *metrics) observeStage(stage string, elapsed time.Duration) {
	m.stages.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts finished requests by status code.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.requests.WithLabelValues(strconv.Itoa(rec.status)).Inc()
	})
}
