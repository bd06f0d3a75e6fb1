package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"  WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("GENPROMPT_TEST_VALUE", "")
	if got := EnvOrDefault("GENPROMPT_TEST_VALUE", "fallback"); got != "fallback" {
		t.Errorf("EnvOrDefault() = %q, want fallback", got)
	}
	t.Setenv("GENPROMPT_TEST_VALUE", "set")
	if got := EnvOrDefault("GENPROMPT_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("EnvOrDefault() = %q, want set", got)
	}
}

func TestStartupLoggerEvent(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	s := NewStartupLogger("genprompt-web").
		Version("v1.2.3").
		S3Bucket("media", "uploads-bucket").
		S3Bucket("unused", "").
		Feature("originVerify", true).
		Config("model", "gemini-2.5-flash")
	s.event(logger.Info()).Msg("Startup complete")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON log line: %v\n%s", err, buf.String())
	}

	rt, _ := got["runtime"].(map[string]any)
	if rt["name"] != "genprompt-web" || rt["version"] != "v1.2.3" {
		t.Errorf("runtime = %v", rt)
	}
	if _, ok := rt["functionName"]; ok {
		t.Error("lambda fields should be omitted outside Lambda")
	}

	res, _ := got["resources"].(map[string]any)
	buckets, _ := res["s3Buckets"].(map[string]any)
	if buckets["media"] != "uploads-bucket" || len(buckets) != 1 {
		t.Errorf("s3Buckets = %v", buckets)
	}
	if _, ok := res["ssmParams"]; ok {
		t.Error("empty ssmParams should be omitted")
	}

	features, _ := got["features"].(map[string]any)
	if features["originVerify"] != true {
		t.Errorf("features = %v", features)
	}
	cfg, _ := got["config"].(map[string]any)
	if cfg["model"] != "gemini-2.5-flash" {
		t.Errorf("config = %v", cfg)
	}
}
