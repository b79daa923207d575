package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Model service
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of model service calls",
		},
		[]string{"operation", "outcome"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Model service call duration in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"operation"},
	)

	// Pipeline
	ocrUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_uploads_total",
			Help: "Uploads handled by the OCR extractor",
		},
		[]string{"status"},
	)

	clinicalFillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinical_fills_total",
			Help: "Schema fill results by validation status",
		},
		[]string{"status"},
	)

	ungroundedFieldsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clinical_ungrounded_fields_total",
			Help: "Filled fields whose text was not found in the source notes",
		},
	)

	summaryCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summary_cache_lookups_total",
			Help: "Briefing cache lookups",
		},
		[]string{"result"},
	)

	emailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinical_history_emails_total",
			Help: "Clinical history emails by outcome",
		},
		[]string{"outcome"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routePattern labels by chi route template to keep cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	if len(r.URL.Path) > 100 {
		return "/..."
	}
	return r.URL.Path
}

// ObserveLLMCall records a model service call.
func ObserveLLMCall(operation string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	llmRequestsTotal.WithLabelValues(operation, outcome).Inc()
	llmRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordOCRUpload counts one extractor item ("processed" or "failed").
func RecordOCRUpload(status string) {
	ocrUploadsTotal.WithLabelValues(status).Inc()
}

// RecordFill counts a schema fill by validation status.
func RecordFill(status string, ungrounded int) {
	clinicalFillsTotal.WithLabelValues(status).Inc()
	ungroundedFieldsTotal.Add(float64(ungrounded))
}

// RecordSummaryCache counts a briefing cache lookup ("hit", "miss", "error").
func RecordSummaryCache(result string) {
	summaryCacheTotal.WithLabelValues(result).Inc()
}

// RecordEmail counts a clinical history delivery attempt.
func RecordEmail(err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	emailsSentTotal.WithLabelValues(outcome).Inc()
}
