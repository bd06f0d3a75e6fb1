package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/genprompt/internal/assets"
	"github.com/fpang/genprompt/internal/session"
	"github.com/rs/zerolog/log"
)

// direct writes Prompt B for the generated image. The creative brief and any
// pending feedback are consumed on every exit, including failures, so a stale
// brief is never replayed on the next request.
func (s *steps) direct(ctx context.Context, st session.State) (res Result, err error) {
	log.Info().Bool("has_brief", st.VideoCreativeBrief != nil).Msg("Running video director")

	brief := st.VideoCreativeBrief
	defer func() {
		res.State.VideoCreativeBrief = nil
		res.State.UserFeedback = ""
	}()

	if len(st.GeneratedImage) == 0 {
		log.Warn().Msg("No generated image in state, skipping video direction")
		return skipped(st, fmt.Errorf("direct: generated_image: %w", ErrMissingInput)), nil
	}

	prompt, err := s.deps.Renderer.Render(assets.VideoDirector, assets.DirectorData{Brief: brief})
	if err != nil {
		log.Error().Err(err).Msg("Failed to render video director template")
		return degraded(st, err), nil
	}

	start := time.Now()
	text, err := s.deps.Inference.Generate(ctx, GenerateRequest{
		Purpose:     NodeDirect.String(),
		Prompt:      prompt,
		Image:       st.GeneratedImage,
		Temperature: directTemperature,
	})
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = errEmptyOutput
	}
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Video direction failed")
		return degraded(st, err), nil
	}

	st.VideoPrompt = text
	st.AppendHistory(text)

	log.Info().
		Int("body_length", len(text)).
		Int("history_length", len(st.PromptHistory)).
		Dur("duration", time.Since(start)).
		Msg("Video prompt generated")
	return succeeded(st), nil
}
