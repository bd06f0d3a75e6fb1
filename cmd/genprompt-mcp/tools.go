package main

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/genprompt/internal/graph"
	"github.com/fpang/genprompt/internal/session"
)

type runner interface {
	Invoke(ctx context.Context, st session.State) (session.State, graph.Trace, error)
}

type tools struct {
	runner    runner
	readImage func(path string) ([]byte, error)
}

type analyzeInput struct {
	ImagePath string `json:"image_path" jsonschema:"absolute path of the reference photo"`
}

type directInput struct {
	ImagePath       string   `json:"image_path" jsonschema:"absolute path of the generated image to animate"`
	Moods           []string `json:"moods,omitempty" jsonschema:"moods the video should convey"`
	CameraMovement  string   `json:"camera_movement,omitempty" jsonschema:"preferred camera movement"`
	AdditionalNotes string   `json:"additional_notes,omitempty" jsonschema:"any other direction"`
	PromptHistory   []string `json:"prompt_history,omitempty" jsonschema:"prompts produced earlier in the session"`
}

type refineInput struct {
	Target        string   `json:"target" jsonschema:"which prompt to refine: image or video"`
	Prompt        string   `json:"prompt" jsonschema:"the current prompt text"`
	Feedback      string   `json:"feedback" jsonschema:"what to change"`
	PromptHistory []string `json:"prompt_history,omitempty" jsonschema:"prompts produced earlier in the session"`
}

type stepOutput struct {
	Node       string `json:"node"`
	Outcome    string `json:"outcome"`
	DurationMs int64  `json:"duration_ms"`
	Cause      string `json:"cause,omitempty"`
}

type promptOutput struct {
	RunID          string                  `json:"run_id"`
	VisualAnalysis *session.VisualAnalysis `json:"visual_analysis,omitempty"`
	ImagePrompt    *session.ImagePrompt    `json:"image_prompt,omitempty"`
	VideoPrompt    string                  `json:"video_prompt,omitempty"`
	PromptHistory  []string                `json:"prompt_history"`
	Steps          []stepOutput            `json:"steps"`
}

func registerTools(server *mcp.Server, t *tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_image",
		Description: "Analyze a reference photo and write a text-to-image prompt (Prompt A).",
	}, t.analyzeImage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "direct_video",
		Description: "Write a video-direction prompt (Prompt B) for a generated image, guided by an optional creative brief.",
	}, t.directVideo)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "refine_prompt",
		Description: "Revise an image or video prompt according to feedback.",
	}, t.refinePrompt)
}

func (t *tools) analyzeImage(ctx context.Context, _ *mcp.CallToolRequest, in analyzeInput) (*mcp.CallToolResult, promptOutput, error) {
	image, err := t.readImage(in.ImagePath)
	if err != nil {
		return nil, promptOutput{}, err
	}
	return t.invoke(ctx, "analyze_image", session.State{OriginalImage: image})
}

func (t *tools) directVideo(ctx context.Context, _ *mcp.CallToolRequest, in directInput) (*mcp.CallToolResult, promptOutput, error) {
	image, err := t.readImage(in.ImagePath)
	if err != nil {
		return nil, promptOutput{}, err
	}
	st := session.State{
		GeneratedImage: image,
		VideoCreativeBrief: &session.VideoCreativeBrief{
			Moods:           in.Moods,
			CameraMovement:  in.CameraMovement,
			AdditionalNotes: in.AdditionalNotes,
		},
		PromptHistory: in.PromptHistory,
	}
	return t.invoke(ctx, "direct_video", st)
}

func (t *tools) refinePrompt(ctx context.Context, _ *mcp.CallToolRequest, in refineInput) (*mcp.CallToolResult, promptOutput, error) {
	target, err := session.ParsePromptTarget(strings.ToLower(strings.TrimSpace(in.Target)))
	if err != nil {
		return nil, promptOutput{}, err
	}
	switch {
	case target == session.TargetNone:
		return nil, promptOutput{}, errors.New(`target must be "image" or "video"`)
	case strings.TrimSpace(in.Prompt) == "":
		return nil, promptOutput{}, errors.New("prompt is required")
	case strings.TrimSpace(in.Feedback) == "":
		return nil, promptOutput{}, errors.New("feedback is required")
	}

	st := session.State{
		UserFeedback:              in.Feedback,
		ActivePromptForRefinement: target,
		PromptHistory:             in.PromptHistory,
	}
	if target == session.TargetImage {
		st.ImagePrompt = session.NewImagePrompt(in.Prompt)
	} else {
		st.VideoPrompt = in.Prompt
	}
	return t.invoke(ctx, "refine_prompt", st)
}

func (t *tools) invoke(ctx context.Context, tool string, st session.State) (*mcp.CallToolResult, promptOutput, error) {
	result, trace, err := t.runner.Invoke(ctx, st)
	if err != nil {
		log.Error().Err(err).Str("tool", tool).Str("run_id", trace.RunID).Msg("Tool call failed")
		return nil, promptOutput{}, err
	}
	log.Info().Str("tool", tool).Str("run_id", trace.RunID).Int("steps", len(trace.Steps)).Msg("Tool call complete")
	return nil, toOutput(result, trace), nil
}

func toOutput(st session.State, trace graph.Trace) promptOutput {
	out := promptOutput{
		RunID:          trace.RunID,
		VisualAnalysis: st.VisualAnalysis,
		ImagePrompt:    st.ImagePrompt,
		VideoPrompt:    st.VideoPrompt,
		PromptHistory:  st.PromptHistory,
		Steps:          make([]stepOutput, 0, len(trace.Steps)),
	}
	if out.PromptHistory == nil {
		out.PromptHistory = []string{}
	}
	for _, s := range trace.Steps {
		step := stepOutput{
			Node:       s.Node.String(),
			Outcome:    s.Outcome.String(),
			DurationMs: s.Duration.Milliseconds(),
		}
		if s.Cause != nil {
			step.Cause = s.Cause.Error()
		}
		out.Steps = append(out.Steps, step)
	}
	return out
}
