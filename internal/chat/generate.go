package chat

import (
	"context"

	"github.com/fpang/genprompt/internal/graph"
	"google.golang.org/genai"
)

// Generate returns the model's text for req.Prompt. When req.Image is set it
// is attached after the prompt as an inline blob.
func (c *Client) Generate(ctx context.Context, req graph.GenerateRequest) (string, error) {
	parts := []*genai.Part{{Text: req.Prompt}}
	if len(req.Image) > 0 {
		imgPart, err := c.imagePart(req.Image)
		if err != nil {
			return "", err
		}
		parts = append(parts, imgPart)
	}

	operation := req.Purpose
	if operation == "" {
		operation = "generate"
	}
	return c.generate(ctx, operation, parts, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	})
}
