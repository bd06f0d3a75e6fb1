// Package assets provides the embedded prompt templates and the renderer the
// graph uses to turn session data into model instructions.
//
// Templates are stored as text files under prompts/ and embedded at compile
// time, so a bad template fails at startup rather than mid-request.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/fpang/genprompt/internal/session"
	"github.com/rs/zerolog/log"
)

// Template names understood by Renderer.Render.
const (
	VisualAnalyst  = "visual-analyst"
	PromptEngineer = "prompt-engineer"
	VideoDirector  = "video-director"
	PromptRefiner  = "prompt-refiner"
)

//go:embed prompts/*.txt
var promptFS embed.FS

var funcs = template.FuncMap{
	"join": strings.Join,
}

// AnalystData feeds the visual-analyst template.
type AnalystData struct {
	// MetadataContext is formatted EXIF data, empty when the image carries none.
	MetadataContext string
}

// EngineerData feeds the prompt-engineer template.
type EngineerData struct {
	Analysis *session.VisualAnalysis
}

// DirectorData feeds the video-director template. Brief may be nil.
type DirectorData struct {
	Brief *session.VideoCreativeBrief
}

// RefinerData feeds the prompt-refiner template.
type RefinerData struct {
	OriginalPrompt string
	UserFeedback   string
}

// Renderer executes the embedded prompt templates. It is safe for concurrent use.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses every embedded template. template.Must panics on a
// malformed template, which is a build defect, not a runtime condition.
func NewRenderer() *Renderer {
	names := []string{VisualAnalyst, PromptEngineer, VideoDirector, PromptRefiner}
	r := &Renderer{templates: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		text, err := promptFS.ReadFile("prompts/" + name + ".txt")
		if err != nil {
			panic(fmt.Sprintf("assets: missing embedded template %s: %v", name, err))
		}
		r.templates[name] = template.Must(template.New(name).
			Funcs(funcs).
			Option("missingkey=error").
			Parse(string(text)))
	}
	return r
}

// Render executes the named template with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	log.Trace().Str("template", name).Int("length", buf.Len()).Msg("Rendered prompt template")
	return buf.String(), nil
}
