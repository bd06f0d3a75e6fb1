// Package cli holds the bootstrap shared by the local GenPrompt binaries:
// credential lookup, graph construction, image input and trace output.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fpang/genprompt/internal/assets"
	"github.com/fpang/genprompt/internal/auth"
	"github.com/fpang/genprompt/internal/chat"
	"github.com/fpang/genprompt/internal/graph"
	"github.com/rs/zerolog/log"
)

// GraphOptions controls NewGraph.
type GraphOptions struct {
	APIKey string
	Model  string
	// Validate makes a probe request before the graph is built.
	Validate bool
	// RequestsPerSecond paces Gemini calls when positive.
	RequestsPerSecond float64
}

// RequestsPerSecondEnv optionally caps the Gemini request rate.
const RequestsPerSecondEnv = "GEMINI_REQUESTS_PER_SECOND"

// RequestsPerSecondFromEnv parses GEMINI_REQUESTS_PER_SECOND, returning 0
// (unthrottled) when it is unset or invalid.
func RequestsPerSecondFromEnv() float64 {
	v := os.Getenv(RequestsPerSecondEnv)
	if v == "" {
		return 0
	}
	rps, err := strconv.ParseFloat(v, 64)
	if err != nil || rps < 0 {
		log.Warn().Str("value", v).Msg("Ignoring invalid " + RequestsPerSecondEnv)
		return 0
	}
	return rps
}

// NewGraph builds a Gemini-backed graph.
func NewGraph(ctx context.Context, opts GraphOptions) (*graph.Graph, error) {
	model := opts.Model
	if model == "" {
		model = chat.GetModelName()
	}

	client, err := chat.NewGeminiClient(ctx, opts.APIKey)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	if opts.Validate {
		if err := auth.ValidateAPIKey(ctx, client, model); err != nil {
			return nil, err
		}
		log.Info().Str("model", model).Msg("API key validated")
	}

	return graph.New(graph.Deps{
		Inference: chat.New(client,
			chat.WithModel(model),
			chat.WithRateLimit(opts.RequestsPerSecond, 2),
		),
		Renderer: assets.NewRenderer(),
	})
}

// InitGraph resolves the API key, validates it and returns a ready graph.
// It exits the process on failure.
func InitGraph(model string) (context.Context, *graph.Graph) {
	apiKey, source, err := auth.ResolveAPIKey()
	if err != nil {
		HandleValidationError(err)
	}
	log.Debug().Str("source", string(source)).Msg("API key resolved")

	ctx := context.Background()
	g, err := NewGraph(ctx, GraphOptions{
		APIKey:            apiKey,
		Model:             model,
		Validate:          true,
		RequestsPerSecond: RequestsPerSecondFromEnv(),
	})
	if err != nil {
		HandleValidationError(err)
	}
	return ctx, g
}
