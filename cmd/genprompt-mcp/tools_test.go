package main

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/fpang/genprompt/internal/graph"
	"github.com/fpang/genprompt/internal/metrics"
	"github.com/fpang/genprompt/internal/session"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeRunner struct {
	got session.State
	err error
}

func (f *fakeRunner) Invoke(_ context.Context, st session.State) (session.State, graph.Trace, error) {
	f.got = st
	trace := graph.Trace{
		RunID: "run-7",
		Entry: graph.Decide(st),
		Steps: []graph.StepRecord{{Node: graph.Decide(st).Node(), Outcome: graph.Succeeded, Duration: 1500 * time.Millisecond}},
	}
	if f.err != nil {
		return st, trace, f.err
	}
	out := st.Clone()
	out.VideoPrompt = "camera glides forward"
	out.AppendHistory(out.VideoPrompt)
	return out, trace, nil
}

func readFake(path string) ([]byte, error) {
	if path == "/missing.jpg" {
		return nil, errors.New("image not found: /missing.jpg")
	}
	return []byte("img:" + path), nil
}

func TestAnalyzeImageTool(t *testing.T) {
	r := &fakeRunner{}
	tl := &tools{runner: r, readImage: readFake}

	_, out, err := tl.analyzeImage(context.Background(), nil, analyzeInput{ImagePath: "/a.jpg"})
	if err != nil {
		t.Fatalf("analyzeImage() error = %v", err)
	}
	if string(r.got.OriginalImage) != "img:/a.jpg" {
		t.Errorf("runner image = %q", r.got.OriginalImage)
	}
	if out.RunID != "run-7" || len(out.Steps) != 1 || out.Steps[0].DurationMs != 1500 {
		t.Errorf("output = %+v", out)
	}

	if _, _, err := tl.analyzeImage(context.Background(), nil, analyzeInput{ImagePath: "/missing.jpg"}); err == nil {
		t.Error("expected error for a missing image")
	}
}

func TestDirectVideoTool(t *testing.T) {
	r := &fakeRunner{}
	tl := &tools{runner: r, readImage: readFake}

	_, out, err := tl.directVideo(context.Background(), nil, directInput{
		ImagePath:      "/gen.png",
		Moods:          []string{"calm"},
		CameraMovement: "orbit",
	})
	if err != nil {
		t.Fatalf("directVideo() error = %v", err)
	}
	if r.got.VideoCreativeBrief == nil || r.got.VideoCreativeBrief.CameraMovement != "orbit" {
		t.Errorf("brief = %+v", r.got.VideoCreativeBrief)
	}
	if graph.Decide(r.got) != graph.RouteDirect {
		t.Errorf("state routes to %v", graph.Decide(r.got))
	}
	if out.VideoPrompt != "camera glides forward" || len(out.PromptHistory) != 1 {
		t.Errorf("output = %+v", out)
	}
}

func TestRefinePromptTool(t *testing.T) {
	tests := []struct {
		name    string
		in      refineInput
		wantErr bool
		check   func(t *testing.T, st session.State)
	}{
		{
			name: "image",
			in:   refineInput{Target: "Image", Prompt: "a fox", Feedback: "in snow"},
			check: func(t *testing.T, st session.State) {
				if st.ImagePrompt == nil || st.ImagePrompt.PromptBody != "a fox" {
					t.Errorf("image prompt = %+v", st.ImagePrompt)
				}
				if st.ActivePromptForRefinement != session.TargetImage {
					t.Errorf("target = %q", st.ActivePromptForRefinement)
				}
			},
		},
		{
			name: "video",
			in:   refineInput{Target: "video", Prompt: "pan", Feedback: "slower"},
			check: func(t *testing.T, st session.State) {
				if st.VideoPrompt != "pan" || st.UserFeedback != "slower" {
					t.Errorf("state = %+v", st)
				}
			},
		},
		{name: "bad target", in: refineInput{Target: "audio", Prompt: "x", Feedback: "y"}, wantErr: true},
		{name: "empty target", in: refineInput{Prompt: "x", Feedback: "y"}, wantErr: true},
		{name: "no feedback", in: refineInput{Target: "image", Prompt: "x"}, wantErr: true},
		{name: "no prompt", in: refineInput{Target: "video", Feedback: "y"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			tl := &tools{runner: r, readImage: readFake}
			_, _, err := tl.refinePrompt(context.Background(), nil, tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("refinePrompt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, r.got)
			}
		})
	}
}

func TestToolPropagatesGraphError(t *testing.T) {
	tl := &tools{runner: &fakeRunner{err: errors.New("analyze: missing")}, readImage: readFake}
	if _, _, err := tl.analyzeImage(context.Background(), nil, analyzeInput{ImagePath: "/a.jpg"}); err == nil {
		t.Error("expected graph error")
	}
}

func TestToOutputHistoryNeverNil(t *testing.T) {
	out := toOutput(session.State{}, graph.Trace{})
	if out.PromptHistory == nil || out.Steps == nil {
		t.Errorf("output = %+v", out)
	}
}
