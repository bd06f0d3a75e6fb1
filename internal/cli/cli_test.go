package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/genprompt/internal/graph"
)

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(good, []byte("jpeg-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	text := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(text, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	data, err := ReadImage(good)
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("ReadImage(good) = %q, %v", data, err)
	}

	tests := []struct {
		name    string
		path    string
		wantMsg string
	}{
		{"missing", filepath.Join(dir, "nope.jpg"), "not found"},
		{"directory", dir, "is a directory"},
		{"unsupported", text, "unsupported image type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadImage(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("ReadImage(%s) error = %v, want %q", tt.path, err, tt.wantMsg)
			}
		})
	}
}

func TestPromptForLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   string
		want  string
	}{
		{"typed", "warmer tones\n", "", "warmer tones"},
		{"trimmed", "  closer  \n", "", "closer"},
		{"default on empty", "\n", "image", "image"},
		{"no trailing newline", "video", "", "video"},
		{"eof uses default", "", "image", "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := PromptForLine(strings.NewReader(tt.input), &out, "Feedback", tt.def)
			if err != nil {
				t.Fatalf("PromptForLine() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PromptForLine() = %q, want %q", got, tt.want)
			}
			if !strings.HasPrefix(out.String(), "Feedback") {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{12 * time.Second, "12.0s"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.d); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatTrace(t *testing.T) {
	trace := graph.Trace{
		RunID: "abc",
		Entry: graph.RouteAnalyze,
		Steps: []graph.StepRecord{
			{Node: graph.NodeAnalyze, Outcome: graph.Degraded, Duration: 2 * time.Second, Cause: errors.New("timeout")},
			{Node: graph.NodeSynthesize, Outcome: graph.Succeeded, Duration: 900 * time.Millisecond},
		},
	}
	got := FormatTrace(trace)
	for _, want := range []string{"run abc", "degraded", "timeout", "succeeded", "900ms"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatTrace() missing %q:\n%s", want, got)
		}
	}
	if lines := strings.Count(got, "\n"); lines != 3 {
		t.Errorf("FormatTrace() has %d lines, want 3", lines)
	}
}

func TestRequestsPerSecondFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  float64
	}{
		{"", 0},
		{"2.5", 2.5},
		{"abc", 0},
		{"-1", 0},
	}
	for _, tt := range tests {
		t.Setenv(RequestsPerSecondEnv, tt.value)
		if got := RequestsPerSecondFromEnv(); got != tt.want {
			t.Errorf("RequestsPerSecondFromEnv() with %q = %v, want %v", tt.value, got, tt.want)
		}
	}
}
