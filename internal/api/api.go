// Package api is the HTTP transport for the GenPrompt graph.
//
// Each operation builds a fresh session state from the request, runs exactly
// one graph traversal and returns the resulting state as JSON. Image bytes
// are never echoed back. Internal failures surface as a generic 500 with no
// detail; only malformed client input gets a 4xx.
package api

import (
	"context"
	"net/http"

	"github.com/fpang/genprompt/internal/graph"
	"github.com/fpang/genprompt/internal/s3util"
	"github.com/fpang/genprompt/internal/session"
)

// DefaultMaxUploadBytes caps uploaded images.
const DefaultMaxUploadBytes = 20 << 20

// HealthStatus is the body served by the health endpoints.
const HealthStatus = "GenPrompt API is running"

// Runner executes one graph traversal. *graph.Graph implements it.
type Runner interface {
	Invoke(ctx context.Context, st session.State) (session.State, graph.Trace, error)
}

// ImageSource loads a previously uploaded image by object key.
type ImageSource interface {
	ReadObject(ctx context.Context, key string) ([]byte, error)
}

// Uploader presigns direct browser uploads.
type Uploader interface {
	PresignUpload(ctx context.Context, sessionID, filename, contentType string) (*s3util.Upload, error)
}

// Option configures a Handler.
type Option func(*Handler)

// WithImageSource enables the image_key form field.
func WithImageSource(src ImageSource) Option {
	return func(h *Handler) { h.images = src }
}

// WithUploader enables GET /api/upload-url.
func WithUploader(u Uploader) Option {
	return func(h *Handler) { h.uploads = u }
}

// WithOriginSecret requires every request to carry x-origin-verify: secret.
// An empty secret disables the check.
func WithOriginSecret(secret string) Option {
	return func(h *Handler) { h.originSecret = secret }
}

// WithLocalCORS allows browser requests from localhost origins.
func WithLocalCORS() Option {
	return func(h *Handler) { h.localCORS = true }
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) { h.maxUpload = n }
}

// Handler serves the GenPrompt API.
type Handler struct {
	runner       Runner
	images       ImageSource
	uploads      Uploader
	originSecret string
	localCORS    bool
	maxUpload    int64

	handler http.Handler
}

// NewHandler returns the API handler with its middleware chain applied.
func NewHandler(runner Runner, opts ...Option) *Handler {
	h := &Handler{runner: runner, maxUpload: DefaultMaxUploadBytes}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleHealth)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("POST /api/invoke-graph", h.handleInvokeGraph)
	mux.HandleFunc("POST /api/refine-prompt", h.handleRefinePrompt)
	mux.HandleFunc("POST /api/generate-video-prompt", h.handleGenerateVideoPrompt)
	if h.uploads != nil {
		mux.HandleFunc("GET /api/upload-url", h.handleUploadURL)
	}

	var next http.Handler = mux
	if h.localCORS {
		next = withCORS(next)
	}
	next = withOriginVerify(h.originSecret, next)
	next = withMetrics(next)
	next = withLogging(next)
	next = withRequestID(next)
	h.handler = withCompression(next)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
