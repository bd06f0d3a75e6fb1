package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/fpang/genprompt/internal/jsonutil"
	"github.com/fpang/genprompt/internal/session"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// visualAnalysisSchema mirrors session.VisualAnalysis.
var visualAnalysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"main_subject":            {Type: genai.TypeString, Description: "The primary subject of the image."},
		"setting_and_environment": {Type: genai.TypeString, Description: "Where the scene takes place."},
		"artistic_style":          {Type: genai.TypeString, Description: "The visual or artistic style."},
		"mood_and_atmosphere":     {Type: genai.TypeString, Description: "The emotional tone of the scene."},
		"lighting_style":          {Type: genai.TypeString, Description: "How the scene is lit."},
		"color_scheme": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Dominant colors, most prominent first.",
		},
		"compositional_notes": {Type: genai.TypeString, Description: "Framing, perspective and layout."},
	},
	Required: []string{
		"main_subject",
		"setting_and_environment",
		"artistic_style",
		"mood_and_atmosphere",
		"lighting_style",
		"color_scheme",
		"compositional_notes",
	},
	PropertyOrdering: []string{
		"main_subject",
		"setting_and_environment",
		"artistic_style",
		"mood_and_atmosphere",
		"lighting_style",
		"color_scheme",
		"compositional_notes",
	},
}

// AnalyzeImage asks the model for a structured visual analysis of image.
// Each attempt gets its own timeout; 429s, 5xx and network errors are retried.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, instruction string) (*session.VisualAnalysis, error) {
	imgPart, err := c.imagePart(image)
	if err != nil {
		return nil, err
	}
	parts := []*genai.Part{{Text: instruction}, imgPart}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(analysisTemperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   visualAnalysisSchema,
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * time.Duration(1<<(attempt-1))
			log.Warn().
				Err(lastErr).
				Int("attempt", attempt+1).
				Dur("backoff", wait).
				Msg("Retrying visual analysis")
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("visual analysis: %w", ctx.Err())
			case <-time.After(wait):
			}
		}

		analysis, err := c.analyzeOnce(ctx, parts, config)
		if err == nil {
			return analysis, nil
		}
		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("visual analysis: %w", lastErr)
}

func (c *Client) analyzeOnce(ctx context.Context, parts []*genai.Part, config *genai.GenerateContentConfig) (*session.VisualAnalysis, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.generate(ctx, "analyze", parts, config)
	if err != nil {
		return nil, err
	}
	return parseVisualAnalysis(text)
}

// parseVisualAnalysis decodes model output. The schema normally yields bare
// JSON, but fenced or prose-wrapped output is accepted too.
func parseVisualAnalysis(text string) (*session.VisualAnalysis, error) {
	analysis, err := jsonutil.ParseJSON[session.VisualAnalysis](text)
	if err != nil {
		log.Error().Err(err).Int("response_length", len(text)).Msg("Failed to parse visual analysis")
		return nil, fmt.Errorf("visual analysis response: %w", err)
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("visual analysis response: %w", err)
	}
	return &analysis, nil
}
