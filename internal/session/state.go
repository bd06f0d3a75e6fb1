// Package session defines the creative session state threaded through one
// traversal of the GenPrompt graph.
//
// A State is built fresh per request (or rebuilt from caller-supplied JSON),
// handed to the graph, and returned. Nothing here is retained between
// requests; carrying state across turns is the caller's job.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultTechnicalParameters is appended to text-to-image prompts when the
// caller did not supply its own parameters.
const DefaultTechnicalParameters = "--ar 16:9 --v 6.0 --style raw"

// fallbackPlaceholder fills every descriptive field of a failed analysis.
const fallbackPlaceholder = "Unknown"

// PromptTarget names which prompt a pending refinement applies to.
type PromptTarget string

const (
	// TargetNone means no refinement target is set.
	TargetNone PromptTarget = ""
	// TargetImage refines Prompt A (the text-to-image prompt).
	TargetImage PromptTarget = "image"
	// TargetVideo refines Prompt B (the video-direction prompt).
	TargetVideo PromptTarget = "video"
)

// ParsePromptTarget converts a wire value into a PromptTarget.
// The empty string parses to TargetNone.
func ParsePromptTarget(s string) (PromptTarget, error) {
	switch PromptTarget(s) {
	case TargetNone, TargetImage, TargetVideo:
		return PromptTarget(s), nil
	default:
		return TargetNone, fmt.Errorf("invalid prompt target %q: must be \"image\" or \"video\"", s)
	}
}

// UnmarshalJSON rejects targets other than "image" and "video".
func (t *PromptTarget) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("prompt target: %w", err)
	}
	parsed, err := ParsePromptTarget(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// VisualAnalysis is the structured output of the Analyze step, tailored for
// artistic and cinematic interpretation of the source image.
type VisualAnalysis struct {
	MainSubject           string   `json:"main_subject"`
	SettingAndEnvironment string   `json:"setting_and_environment"`
	ArtisticStyle         string   `json:"artistic_style"`
	MoodAndAtmosphere     string   `json:"mood_and_atmosphere"`
	LightingStyle         string   `json:"lighting_style"`
	ColorScheme           []string `json:"color_scheme"`
	CompositionalNotes    string   `json:"compositional_notes"`
}

// Validate reports the first missing required field.
func (a *VisualAnalysis) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"main_subject", a.MainSubject},
		{"setting_and_environment", a.SettingAndEnvironment},
		{"artistic_style", a.ArtisticStyle},
		{"mood_and_atmosphere", a.MoodAndAtmosphere},
		{"lighting_style", a.LightingStyle},
		{"compositional_notes", a.CompositionalNotes},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("visual analysis: missing %s", f.name)
		}
	}
	if len(a.ColorScheme) == 0 {
		return errors.New("visual analysis: missing color_scheme")
	}
	return nil
}

// FallbackAnalysis is the sentinel record written when visual analysis fails,
// so the rest of the graph can still run.
func FallbackAnalysis(cause error) *VisualAnalysis {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &VisualAnalysis{
		MainSubject:           "Analysis failed",
		SettingAndEnvironment: fallbackPlaceholder,
		ArtisticStyle:         fallbackPlaceholder,
		MoodAndAtmosphere:     fallbackPlaceholder,
		LightingStyle:         fallbackPlaceholder,
		ColorScheme:           []string{fallbackPlaceholder},
		CompositionalNotes:    "Error during analysis: " + msg,
	}
}

// VideoCreativeBrief is the user's optional direction for Prompt B.
type VideoCreativeBrief struct {
	Moods           []string `json:"moods,omitempty"`
	CameraMovement  string   `json:"camera_movement,omitempty"`
	AdditionalNotes string   `json:"additional_notes,omitempty"`
}

// ImagePrompt is the structured text-to-image prompt (Prompt A).
type ImagePrompt struct {
	PromptBody          string `json:"prompt_body"`
	TechnicalParameters string `json:"technical_parameters"`
}

// NewImagePrompt returns a well-formed ImagePrompt with the default
// technical parameters.
func NewImagePrompt(body string) *ImagePrompt {
	return &ImagePrompt{PromptBody: body, TechnicalParameters: DefaultTechnicalParameters}
}

// UnmarshalJSON fills in the default technical parameters when the payload
// omits them.
func (p *ImagePrompt) UnmarshalJSON(data []byte) error {
	type wire ImagePrompt
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.TechnicalParameters == "" {
		w.TechnicalParameters = DefaultTechnicalParameters
	}
	*p = ImagePrompt(w)
	return nil
}

// State is the complete record of one creative session.
//
// Binary blobs are never serialized: they arrive through the transport's
// multipart uploads and must not be echoed back.
type State struct {
	OriginalImage  []byte `json:"-"`
	GeneratedImage []byte `json:"-"`

	VisualAnalysis     *VisualAnalysis     `json:"visual_analysis,omitempty"`
	VideoCreativeBrief *VideoCreativeBrief `json:"video_creative_brief,omitempty"`
	ImagePrompt        *ImagePrompt        `json:"image_prompt,omitempty"`
	VideoPrompt        string              `json:"video_prompt,omitempty"`
	UserFeedback       string              `json:"user_feedback,omitempty"`
	PromptHistory      []string            `json:"prompt_history"`

	ActivePromptForRefinement PromptTarget `json:"active_prompt_for_refinement,omitempty"`
}

// MarshalJSON always emits prompt_history as an array, never null.
func (s State) MarshalJSON() ([]byte, error) {
	type wire State
	w := wire(s)
	if w.PromptHistory == nil {
		w.PromptHistory = []string{}
	}
	return json.Marshal(w)
}

// Validate checks the invariants the graph relies on but never re-checks.
func (s *State) Validate() error {
	if s.ImagePrompt != nil && s.ImagePrompt.PromptBody == "" {
		return errors.New("image_prompt: prompt_body is required")
	}
	if s.UserFeedback != "" && s.ActivePromptForRefinement == TargetNone {
		return errors.New("active_prompt_for_refinement is required when user_feedback is set")
	}
	if _, err := ParsePromptTarget(string(s.ActivePromptForRefinement)); err != nil {
		return err
	}
	return nil
}

// AppendHistory records a newly produced prompt body.
func (s *State) AppendHistory(body string) {
	s.PromptHistory = append(s.PromptHistory, body)
}

// Clone returns a deep copy so that a traversal never writes into memory the
// caller still holds.
func (s State) Clone() State {
	c := s
	c.OriginalImage = cloneBytes(s.OriginalImage)
	c.GeneratedImage = cloneBytes(s.GeneratedImage)
	if s.VisualAnalysis != nil {
		a := *s.VisualAnalysis
		a.ColorScheme = cloneStrings(s.VisualAnalysis.ColorScheme)
		c.VisualAnalysis = &a
	}
	if s.VideoCreativeBrief != nil {
		b := *s.VideoCreativeBrief
		b.Moods = cloneStrings(s.VideoCreativeBrief.Moods)
		c.VideoCreativeBrief = &b
	}
	if s.ImagePrompt != nil {
		p := *s.ImagePrompt
		c.ImagePrompt = &p
	}
	c.PromptHistory = cloneStrings(s.PromptHistory)
	return c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
