package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rtmonitor/pkg/metrics"
)

// RequestIDHeader carries the id assigned by MetricsMiddleware.
const RequestIDHeader = "X-Request-ID"

const componentHTTP = "http"

// MetricsMiddleware tags the request with an id and records request count,
// latency and, for 4xx/5xx answers, the error breakdown under endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// A caller-supplied id is kept so logs correlate across hops.
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		ms := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(rec.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, ms)

		if rec.statusCode < http.StatusBadRequest {
			return
		}
		kind := errorKind(rec.statusCode)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, kind)
		metrics.RecordErrorByType(kind, severity(rec.statusCode))
		metrics.RecordErrorLatency(componentHTTP, kind, ms)
	}
}

// errorKind names the failure class of an HTTP status for metric labels.
func errorKind(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if code >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}

// severity is high for server faults; an unloaded snapshot counts as medium
// since it resolves on its own.
func severity(code int) string {
	switch {
	case code == http.StatusServiceUnavailable:
		return "medium"
	case code >= http.StatusInternalServerError:
		return "high"
	default:
		return "low"
	}
}

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.statusCode = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}
