package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/genprompt/internal/assets"
	"github.com/fpang/genprompt/internal/session"
	"github.com/rs/zerolog/log"
)

var errEmptyOutput = errors.New("model returned empty text")

// synthesize turns the visual analysis into Prompt A. It writes nothing
// unless the model call succeeds.
func (s *steps) synthesize(ctx context.Context, st session.State) (Result, error) {
	log.Info().Msg("Running prompt engineer")

	if st.VisualAnalysis == nil {
		log.Warn().Msg("No visual analysis in state, skipping prompt synthesis")
		return skipped(st, fmt.Errorf("synthesize: visual_analysis: %w", ErrMissingInput)), nil
	}

	prompt, err := s.deps.Renderer.Render(assets.PromptEngineer, assets.EngineerData{Analysis: st.VisualAnalysis})
	if err != nil {
		log.Error().Err(err).Msg("Failed to render prompt engineer template")
		return degraded(st, err), nil
	}

	start := time.Now()
	text, err := s.deps.Inference.Generate(ctx, GenerateRequest{
		Purpose:     NodeSynthesize.String(),
		Prompt:      prompt,
		Temperature: synthesizeTemperature,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyOutput
	}
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Prompt synthesis failed")
		return degraded(st, err), nil
	}

	ip := session.NewImagePrompt(strings.TrimSpace(text))
	st.ImagePrompt = ip
	st.AppendHistory(ip.PromptBody)

	log.Info().
		Int("body_length", len(ip.PromptBody)).
		Int("history_length", len(st.PromptHistory)).
		Dur("duration", time.Since(start)).
		Msg("Image prompt generated")
	return succeeded(st), nil
}
