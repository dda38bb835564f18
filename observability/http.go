package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Middleware counts and times HTTP requests around next, including the
// in-flight gauge. Mount it outside the RPC handler.
func Middleware(next http.Handler) http.Handler {
	initMetrics()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		httpInFlight.Inc()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpInFlight.Dec()

		status := strconv.Itoa(rec.statusCode)
		httpTotal.WithLabelValues(r.Method, status).Inc()
		httpDuration.WithLabelValues(r.Method, status).Observe(time.Since(started).Seconds())
	})
}

// MetricsHandler returns the prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	initMetrics()
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
