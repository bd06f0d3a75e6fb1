package session

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParsePromptTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    PromptTarget
		wantErr bool
	}{
		{"", TargetNone, false},
		{"image", TargetImage, false},
		{"video", TargetVideo, false},
		{"audio", TargetNone, true},
		{"IMAGE", TargetNone, true},
	}
	for _, tt := range tests {
		got, err := ParsePromptTarget(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePromptTarget(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePromptTarget(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImagePromptDefaultsTechnicalParameters(t *testing.T) {
	var p ImagePrompt
	if err := json.Unmarshal([]byte(`{"prompt_body":"a cat"}`), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PromptBody != "a cat" {
		t.Errorf("PromptBody = %q, want %q", p.PromptBody, "a cat")
	}
	if p.TechnicalParameters != DefaultTechnicalParameters {
		t.Errorf("TechnicalParameters = %q, want default", p.TechnicalParameters)
	}

	if err := json.Unmarshal([]byte(`{"prompt_body":"x","technical_parameters":"--ar 1:1"}`), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TechnicalParameters != "--ar 1:1" {
		t.Errorf("TechnicalParameters = %q, want caller value kept", p.TechnicalParameters)
	}
}

func TestStateMarshalOmitsBlobs(t *testing.T) {
	st := State{
		OriginalImage:  []byte{0xff, 0xd8, 0xff},
		GeneratedImage: []byte{0x89, 'P', 'N', 'G'},
		VideoPrompt:    "slow dolly in",
	}
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(data)
	for _, banned := range []string{"original_image", "generated_image", "user_feedback", "image_prompt"} {
		if strings.Contains(out, banned) {
			t.Errorf("marshaled state should not contain %q: %s", banned, out)
		}
	}
	if !strings.Contains(out, `"prompt_history":[]`) {
		t.Errorf("prompt_history should marshal as an empty array: %s", out)
	}
	if !strings.Contains(out, `"video_prompt":"slow dolly in"`) {
		t.Errorf("video_prompt missing: %s", out)
	}
}

func TestStateUnmarshalRejectsUnknownTarget(t *testing.T) {
	var st State
	err := json.Unmarshal([]byte(`{"active_prompt_for_refinement":"audio"}`), &st)
	if err == nil {
		t.Fatal("expected error for unknown refinement target")
	}
}

func TestStateValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		wantErr bool
	}{
		{"empty", State{}, false},
		{"image prompt with body", State{ImagePrompt: NewImagePrompt("a cat")}, false},
		{"image prompt without body", State{ImagePrompt: &ImagePrompt{}}, true},
		{"feedback without target", State{UserFeedback: "darker"}, true},
		{"feedback with target", State{UserFeedback: "darker", ActivePromptForRefinement: TargetVideo}, false},
		{"bogus target", State{ActivePromptForRefinement: "audio"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFallbackAnalysis(t *testing.T) {
	a := FallbackAnalysis(errors.New("quota exceeded"))
	if a.MainSubject != "Analysis failed" {
		t.Errorf("MainSubject = %q", a.MainSubject)
	}
	if !strings.Contains(a.CompositionalNotes, "quota exceeded") {
		t.Errorf("CompositionalNotes should embed the error, got %q", a.CompositionalNotes)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("fallback analysis should be schema-valid: %v", err)
	}
}

func TestVisualAnalysisValidate(t *testing.T) {
	a := &VisualAnalysis{
		MainSubject:           "a lighthouse",
		SettingAndEnvironment: "rocky coast",
		ArtisticStyle:         "oil painting",
		MoodAndAtmosphere:     "lonely",
		LightingStyle:         "overcast",
		ColorScheme:           []string{"slate grey"},
		CompositionalNotes:    "rule of thirds",
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.ColorScheme = nil
	if err := a.Validate(); err == nil {
		t.Error("expected error for missing color_scheme")
	}
	a.ColorScheme = []string{"grey"}
	a.LightingStyle = ""
	if err := a.Validate(); err == nil || !strings.Contains(err.Error(), "lighting_style") {
		t.Errorf("expected lighting_style error, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := State{
		OriginalImage:      []byte{1, 2, 3},
		VisualAnalysis:     &VisualAnalysis{ColorScheme: []string{"red"}},
		VideoCreativeBrief: &VideoCreativeBrief{Moods: []string{"Epic"}},
		ImagePrompt:        NewImagePrompt("a cat"),
		PromptHistory:      make([]string, 1, 4),
	}
	orig.PromptHistory[0] = "first"

	c := orig.Clone()
	c.OriginalImage[0] = 9
	c.VisualAnalysis.ColorScheme[0] = "blue"
	c.VideoCreativeBrief.Moods[0] = "Dreamy"
	c.ImagePrompt.PromptBody = "a dog"
	c.AppendHistory("second")

	if orig.OriginalImage[0] != 1 {
		t.Error("clone shares image bytes")
	}
	if orig.VisualAnalysis.ColorScheme[0] != "red" {
		t.Error("clone shares color scheme")
	}
	if orig.VideoCreativeBrief.Moods[0] != "Epic" {
		t.Error("clone shares moods")
	}
	if orig.ImagePrompt.PromptBody != "a cat" {
		t.Error("clone shares image prompt")
	}
	if len(orig.PromptHistory) != 1 || orig.PromptHistory[:2][1] != "" {
		t.Error("clone appended into the caller's history backing array")
	}
}
