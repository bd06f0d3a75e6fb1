package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/fpang/genprompt/internal/assets"
	"github.com/fpang/genprompt/internal/media"
	"github.com/fpang/genprompt/internal/session"
	"github.com/rs/zerolog/log"
)

// steps binds the four step functions to their collaborators.
type steps struct {
	deps Deps
}

// analyze inspects the original image and stores a structured visual
// analysis. A missing image is fatal. Any failure after that is absorbed by
// writing the sentinel analysis, so Synthesize still runs.
func (s *steps) analyze(ctx context.Context, st session.State) (Result, error) {
	log.Info().Int("image_bytes", len(st.OriginalImage)).Msg("Running visual analyst")

	if len(st.OriginalImage) == 0 {
		log.Error().Msg("Original image is missing from the session state")
		return Result{State: st, Outcome: Skipped}, fmt.Errorf("analyze: original_image: %w", ErrMissingInput)
	}

	instruction, err := s.deps.Renderer.Render(assets.VisualAnalyst, assets.AnalystData{
		MetadataContext: media.MetadataContext(st.OriginalImage),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to render visual analyst instruction")
		st.VisualAnalysis = session.FallbackAnalysis(err)
		return degraded(st, err), nil
	}

	start := time.Now()
	analysis, err := s.deps.Inference.AnalyzeImage(ctx, st.OriginalImage, instruction)
	if err == nil && analysis == nil {
		err = fmt.Errorf("analysis returned no result")
	}
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Visual analysis failed, using fallback analysis")
		st.VisualAnalysis = session.FallbackAnalysis(err)
		return degraded(st, err), nil
	}

	log.Info().
		Str("main_subject", analysis.MainSubject).
		Dur("duration", time.Since(start)).
		Msg("Visual analysis successful")
	st.VisualAnalysis = analysis
	return succeeded(st), nil
}
