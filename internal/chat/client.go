// Package chat talks to Gemini on behalf of the GenPrompt graph.
//
// Client implements graph.Inference: a structured visual analysis with a
// response schema and transport retries, and plain or multimodal text
// generation. Images are normalized with the media package before they are
// attached inline.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/fpang/genprompt/internal/graph"
	"github.com/fpang/genprompt/internal/media"
	"github.com/fpang/genprompt/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	// DefaultAnalysisTimeout bounds each structured analysis attempt.
	DefaultAnalysisTimeout = 60 * time.Second
	// DefaultAnalysisRetries is the number of extra attempts after a
	// retryable analysis failure.
	DefaultAnalysisRetries = 2

	analysisTemperature float32 = 0.1
)

// contentGenerator is the slice of *genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements graph.Inference on top of the Gemini API.
type Client struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	retries int
	backoff time.Duration
	maxDim  int
	limiter *rate.Limiter
}

var _ graph.Inference = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the model resolved by GetModelName.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithAnalysisRetry sets the per-attempt timeout and retry count for AnalyzeImage.
func WithAnalysisRetry(timeout time.Duration, retries int) Option {
	return func(c *Client) {
		c.timeout = timeout
		c.retries = retries
	}
}

// WithMaxImageDimension bounds the longest edge of images sent to the model.
func WithMaxImageDimension(px int) Option {
	return func(c *Client) { c.maxDim = px }
}

// WithRateLimit paces Gemini calls to rps requests per second with the given
// burst. Callers block until a token is available or ctx is done.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// NewGeminiClient creates a genai client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	log.Debug().Msg("Creating Gemini client")
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// New wraps a genai client.
func New(client *genai.Client, opts ...Option) *Client {
	return newClient(client.Models, opts...)
}

func newClient(models contentGenerator, opts ...Option) *Client {
	c := &Client{
		models:  models,
		model:   GetModelName(),
		timeout: DefaultAnalysisTimeout,
		retries: DefaultAnalysisRetries,
		backoff: time.Second,
		maxDim:  media.DefaultMaxDimension,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the Gemini model the client calls.
func (c *Client) Model() string { return c.model }

// imagePart normalizes raw image bytes into an inline blob.
func (c *Client) imagePart(image []byte) (*genai.Part, error) {
	prepared, err := media.Prepare(image, c.maxDim)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: prepared.MIMEType, Data: prepared.Data}}, nil
}

// generate performs one GenerateContent call and records Gemini API metrics
// for operation.
func (c *Client) generate(ctx context.Context, operation string, parts []*genai.Part, config *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	log.Debug().
		Str("model", c.model).
		Str("operation", operation).
		Int("part_count", len(parts)).
		Msg("Starting Gemini API call")

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	elapsed := time.Since(start)

	m := metrics.New(metrics.Namespace).
		Dimension("Operation", operation).
		Duration("GeminiApiLatencyMs", elapsed).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()

	if err != nil {
		log.Error().Err(err).Str("operation", operation).Dur("duration", elapsed).Msg("Gemini API call failed")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || resp.Text() == "" {
		log.Warn().Str("operation", operation).Dur("duration", elapsed).Msg("Received empty response from Gemini")
		return "", fmt.Errorf("received empty response from Gemini API")
	}

	text := resp.Text()
	log.Debug().
		Str("operation", operation).
		Int("response_length", len(text)).
		Dur("duration", elapsed).
		Msg("Gemini API response received")
	return text, nil
}
