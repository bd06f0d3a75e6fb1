package jsonutil

import (
	"errors"
	"testing"
)

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```\n", `[1,2]`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkdownFences(tt.in); got != tt.want {
				t.Errorf("StripMarkdownFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"object in prose", `Here you go: {"a": {"b": 2}} hope that helps {x}`, `{"a": {"b": 2}}`, false},
		{"array first", `[{"a":1}] and {"b":2}`, `[{"a":1}]`, false},
		{"brace inside string", `{"note": "use } carefully"}`, `{"note": "use } carefully"}`, false},
		{"escaped quote", `{"q": "say \"}\" now"}`, `{"q": "say \"}\" now"}`, false},
		{"none", "no json here", "", true},
		{"unterminated", `{"a": 1`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	type item struct {
		Name  string   `json:"name"`
		Tags  []string `json:"tags"`
		Count int      `json:"count"`
	}

	got, err := ParseJSON[item]("```json\n{\"name\": \"fox\", \"tags\": [\"red\"], \"count\": 3}\n```")
	if err != nil {
		t.Fatalf("ParseJSON() error: %v", err)
	}
	if got.Name != "fox" || len(got.Tags) != 1 || got.Count != 3 {
		t.Errorf("ParseJSON() = %+v", got)
	}

	if _, err := ParseJSON[item]("nothing"); !errors.Is(err, ErrNoJSON) {
		t.Errorf("err = %v, want ErrNoJSON", err)
	}
	if _, err := ParseJSON[item](`{"count": "three"}`); err == nil {
		t.Error("expected type mismatch error")
	}
}
