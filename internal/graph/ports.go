// Package graph is the GenPrompt orchestration core: a router, four steps,
// and the small directed graph that wires them together.
//
// A traversal starts at a conditional entry chosen by Route, runs at most
// two steps (Analyze then Synthesize, or Direct, or Refine), and always ends
// with a state. Steps absorb failures of the models they call; the only
// error a traversal returns is a missing source image for Analyze.
package graph

import (
	"context"

	"github.com/fpang/genprompt/internal/session"
)

// Inference is the model-calling collaborator the steps delegate to.
// Implementations own timeouts and transport retries.
type Inference interface {
	// AnalyzeImage returns a structured analysis of image, guided by instruction.
	AnalyzeImage(ctx context.Context, image []byte, instruction string) (*session.VisualAnalysis, error)

	// Generate returns generated text for req.Prompt, with req.Image attached
	// when it is non-empty.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest describes one text-generation call.
type GenerateRequest struct {
	// Purpose labels the call for logs and metrics (e.g. "synthesize").
	Purpose     string
	Prompt      string
	Image       []byte
	Temperature float32
}

// Renderer turns a named prompt template plus data into model input.
type Renderer interface {
	Render(name string, data any) (string, error)
}

// Sampling temperatures per step.
const (
	synthesizeTemperature float32 = 0.7
	directTemperature      float32 = 0.8
	refineTemperature      float32 = 0.5
)

// Deps are the collaborators a graph is built with.
type Deps struct {
	Inference Inference
	Renderer  Renderer
}
