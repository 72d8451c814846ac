package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fluxbpm/script-registry/internal/metrics"
	"github.com/fluxbpm/script-registry/logger"
)

// statusRecorder captures the status code a handler writes. Handlers that
// never call WriteHeader implicitly respond 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// ObservabilityMiddleware logs every served request and records its metrics.
type ObservabilityMiddleware struct {
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewObservabilityMiddleware creates a new observability middleware.
func NewObservabilityMiddleware(m *metrics.Metrics, log logger.Logger) *ObservabilityMiddleware {
	return &ObservabilityMiddleware{
		metrics: m,
		logger:  log,
	}
}

// Handler wraps an HTTP handler with request logging and metrics recording.
func (m *ObservabilityMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		m.metrics.HTTPRequestsInFlight.Inc()
		next.ServeHTTP(recorder, r)
		m.metrics.HTTPRequestsInFlight.Dec()

		duration := time.Since(start)
		m.metrics.RecordHTTPRequest(r.Method, routeTemplate(r), strconv.Itoa(recorder.status), duration)

		m.logger.Info(r.Context(), "request served", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      recorder.status,
			"duration_ms": duration.Milliseconds(),
		})
	})
}

// routeTemplate returns the mux route template so metrics aggregate by route
// shape rather than by concrete IDs.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}
