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

var errNothingToRefine = errors.New("no prompt body to refine")

// refine applies the pending user feedback to the targeted prompt.
// user_feedback is cleared on every exit; otherwise the router would send the
// next request straight back here.
func (s *steps) refine(ctx context.Context, st session.State) (res Result, err error) {
	target := st.ActivePromptForRefinement
	log.Info().Str("target", string(target)).Msg("Running prompt refiner")

	defer func() {
		res.State.UserFeedback = ""
	}()

	if st.UserFeedback == "" || target == session.TargetNone {
		log.Warn().
			Bool("has_feedback", st.UserFeedback != "").
			Str("target", string(target)).
			Msg("Refinement requested without feedback or target, skipping")
		return skipped(st, fmt.Errorf("refine: feedback and target: %w", ErrMissingInput)), nil
	}

	var original string
	switch target {
	case session.TargetImage:
		if st.ImagePrompt != nil {
			original = st.ImagePrompt.PromptBody
		}
	case session.TargetVideo:
		original = st.VideoPrompt
	default:
		log.Warn().Str("target", string(target)).Msg("Unknown refinement target, skipping")
		return skipped(st, fmt.Errorf("refine: unknown target %q", target)), nil
	}
	if strings.TrimSpace(original) == "" {
		log.Error().Str("target", string(target)).Msg("No prompt found to refine")
		return skipped(st, fmt.Errorf("refine %s: %w", target, errNothingToRefine)), nil
	}

	prompt, err := s.deps.Renderer.Render(assets.PromptRefiner, assets.RefinerData{
		OriginalPrompt: original,
		UserFeedback:   st.UserFeedback,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to render prompt refiner template")
		return degraded(st, err), nil
	}

	start := time.Now()
	text, err := s.deps.Inference.Generate(ctx, GenerateRequest{
		Purpose:     NodeRefine.String(),
		Prompt:      prompt,
		Temperature: refineTemperature,
	})
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = errEmptyOutput
	}
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Prompt refinement failed")
		return degraded(st, err), nil
	}

	switch target {
	case session.TargetImage:
		refined := session.NewImagePrompt(text)
		if params := st.ImagePrompt.TechnicalParameters; params != "" {
			refined.TechnicalParameters = params
		}
		st.ImagePrompt = refined
	case session.TargetVideo:
		st.VideoPrompt = text
	}
	st.AppendHistory(text)

	log.Info().
		Str("target", string(target)).
		Int("history_length", len(st.PromptHistory)).
		Dur("duration", time.Since(start)).
		Msg("Prompt refined")
	return succeeded(st), nil
}
