package metrics

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
)

func TestNew_BinaryDimension(t *testing.T) {
	SetBinary("chroma-web")
	defer SetBinary("")

	r := New(Namespace)
	if r.namespace != Namespace {
		t.Errorf("expected namespace %s, got %s", Namespace, r.namespace)
	}
	if r.dimensions["Binary"] != "chroma-web" {
		t.Errorf("expected Binary dimension chroma-web, got %q", r.dimensions["Binary"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	var buf bytes.Buffer
	restore := SetSink(&buf)
	defer restore()

	New(Namespace).
		Dimension("Operation", "colorize").
		Metric("ColorizeLatencyMs", 1234.5, UnitMilliseconds).
		Count("ColorizeCalls").
		Property("model", "gemini-2.5-flash-image").
		Flush()

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", output)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, output)
	}

	awsMap, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}

	cwMetrics := awsMap["CloudWatchMetrics"].([]interface{})
	if len(cwMetrics) != 1 {
		t.Fatalf("expected 1 CloudWatchMetrics entry, got %d", len(cwMetrics))
	}
	entry := cwMetrics[0].(map[string]interface{})
	if entry["Namespace"] != Namespace {
		t.Errorf("expected namespace %s, got %v", Namespace, entry["Namespace"])
	}
	if defs := entry["Metrics"].([]interface{}); len(defs) != 2 {
		t.Errorf("expected 2 metric definitions, got %d", len(defs))
	}

	if doc["Operation"] != "colorize" {
		t.Errorf("expected Operation=colorize, got %v", doc["Operation"])
	}
	if doc["ColorizeLatencyMs"] != 1234.5 {
		t.Errorf("expected ColorizeLatencyMs=1234.5, got %v", doc["ColorizeLatencyMs"])
	}
	if doc["ColorizeCalls"] != float64(1) {
		t.Errorf("expected ColorizeCalls=1, got %v", doc["ColorizeCalls"])
	}
	if doc["model"] != "gemini-2.5-flash-image" {
		t.Errorf("expected model property, got %v", doc["model"])
	}
}

func TestRecorder_EmptyFlushWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	restore := SetSink(&buf)
	defer restore()

	New(Namespace).Dimension("Operation", "noop").Flush()

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSetSink_Restore(t *testing.T) {
	var first bytes.Buffer
	restoreFirst := SetSink(&first)
	restoreDiscard := SetSink(io.Discard)

	New(Namespace).Count("Dropped").Flush()
	restoreDiscard()
	New(Namespace).Count("Kept").Flush()
	restoreFirst()

	if strings.Contains(first.String(), "Dropped") {
		t.Error("metric flushed while discarding reached the first sink")
	}
	if !strings.Contains(first.String(), "Kept") {
		t.Error("metric flushed after restore did not reach the first sink")
	}
}
