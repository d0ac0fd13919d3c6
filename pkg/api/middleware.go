package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-orderviz/pkg/logging"
)

// panicRecoveryMiddleware turns a handler panic into a 500
func (s *Server) panicRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic in HTTP handler",
					logging.String("method", r.Method),
					logging.String("path", r.URL.Path),
					logging.String("panic", fmt.Sprint(err)),
					logging.String("stack", string(debug.Stack())))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Latency(time.Since(start)))
	})
}

// metricsMiddleware tracks HTTP request metrics by route pattern
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		s.metrics.RequestsInFlight.Inc()
		defer s.metrics.RequestsInFlight.Dec()

		wrapper := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		// Pattern is filled in by the mux
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(wrapper.statusCode)
		s.metrics.RecordRequest(r.Method, route, status, time.Since(start))
		s.metrics.ResponseSizeBytes.WithLabelValues(r.Method, route).Observe(float64(wrapper.bytesWritten))
	})
}

// metricsResponseWriter captures status code and bytes written
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *metricsResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}
