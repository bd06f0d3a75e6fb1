package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fpang/genprompt/internal/metrics"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// withRequestID reuses a well-formed incoming X-Request-ID or mints a UUID,
// echoes it on the response and attaches a request-scoped logger to the
// context.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !requestIDPattern.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := log.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sr, r)
		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sr.statusCode).
			Dur("duration", time.Since(start)).
			Msg("API request")
	})
}

// withMetrics emits RequestLatencyMs and RequestCount per endpoint.
func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sr, r)

		m := metrics.New(metrics.Namespace).
			Dimension("Endpoint", normalizeEndpoint(r.URL.Path)).
			Duration("RequestLatencyMs", time.Since(start)).
			Count("RequestCount").
			Property("method", r.Method).
			Property("statusCode", sr.statusCode)
		if sr.statusCode >= http.StatusInternalServerError {
			m.Count("RequestErrors")
		}
		m.Flush()
	})
}

// normalizeEndpoint keeps the Endpoint dimension low-cardinality.
func normalizeEndpoint(path string) string {
	switch path {
	case "/", "/api/health", "/api/invoke-graph", "/api/refine-prompt",
		"/api/generate-video-prompt", "/api/upload-url":
		return path
	default:
		return "other"
	}
}

// withOriginVerify rejects requests whose x-origin-verify header does not
// match secret. CloudFront injects the header, so direct API Gateway access
// is blocked. An empty secret lets everything through.
func withOriginVerify(secret string, next http.Handler) http.Handler {
	if secret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("x-origin-verify")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			httpError(w, r, http.StatusForbidden, "forbidden", errors.New("missing or invalid x-origin-verify header"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withCORS allows browser calls from localhost origins, for the local UI.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withCompression gzips responses for clients that accept it.
func withCompression(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
