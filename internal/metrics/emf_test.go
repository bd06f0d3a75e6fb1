package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestRecorder_FlushOutput(t *testing.T) {
	buf := capture(t)
	functionName = ""

	New(Namespace).
		Dimension("Step", "analyze").
		Metric("StepLatencyMs", 1234.5, UnitMilliseconds).
		Count("StepCount").
		Property("runId", "abc-123").
		Flush()

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, buf.String())
	}

	awsMap, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}
	cwArr, ok := awsMap["CloudWatchMetrics"].([]interface{})
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}
	cw := cwArr[0].(map[string]interface{})
	if cw["Namespace"] != Namespace {
		t.Errorf("expected namespace %s, got %v", Namespace, cw["Namespace"])
	}
	if doc["Step"] != "analyze" {
		t.Errorf("expected Step=analyze, got %v", doc["Step"])
	}
	if doc["StepLatencyMs"] != 1234.5 {
		t.Errorf("expected StepLatencyMs=1234.5, got %v", doc["StepLatencyMs"])
	}
	if doc["StepCount"] != float64(1) {
		t.Errorf("expected StepCount=1, got %v", doc["StepCount"])
	}
	if doc["runId"] != "abc-123" {
		t.Errorf("expected runId=abc-123, got %v", doc["runId"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	buf := capture(t)
	New("Test").Dimension("Step", "refine").Flush()
	if buf.Len() != 0 {
		t.Errorf("expected no output for recorder without metrics, got: %s", buf.String())
	}
}

func TestRecorder_Duration(t *testing.T) {
	functionName = ""
	rec := New("Test").Duration("LatencyMs", 1500*time.Millisecond)
	if rec.values["LatencyMs"] != 1500 {
		t.Errorf("expected LatencyMs=1500, got %v", rec.values["LatencyMs"])
	}
	if rec.metrics["LatencyMs"].Unit != UnitMilliseconds {
		t.Errorf("expected unit Milliseconds, got %v", rec.metrics["LatencyMs"].Unit)
	}
}

func TestNew_FunctionNameDimension(t *testing.T) {
	initOnce.Do(func() {})
	functionName = "genprompt-api"
	defer func() { functionName = "" }()

	rec := New("Test")
	if rec.dimensions["FunctionName"] != "genprompt-api" {
		t.Errorf("expected FunctionName dimension, got %q", rec.dimensions["FunctionName"])
	}
}
