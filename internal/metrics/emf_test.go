package metrics

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestNew_AutoDimension(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "TestFunction")
	initOnce.Do(func() {}) // Reset once
	functionName = "TestFunction"

	r := New()
	if r.namespace != Namespace {
		t.Errorf("expected namespace %s, got %s", Namespace, r.namespace)
	}
	if r.dimensions["FunctionName"] != "TestFunction" {
		t.Errorf("expected FunctionName dimension TestFunction, got %s", r.dimensions["FunctionName"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	functionName = "" // Clear for test isolation

	rec := New()
	rec.Dimension("Operation", "transcode")
	rec.Metric("EncodeMs", 1234.5, UnitMilliseconds)
	rec.Count("ImagesProcessed")
	rec.Property("sourceKey", "uploads/interior/loft-42/original/photo.png")
	rec.Flush()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := buf.String()

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, output)
	}

	awsDir, ok := doc["_aws"]
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	awsMap, ok := awsDir.(map[string]interface{})
	if !ok {
		t.Fatal("_aws directive is not a map")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}

	cwMetrics, ok := awsMap["CloudWatchMetrics"]
	if !ok {
		t.Fatal("missing CloudWatchMetrics in _aws directive")
	}
	cwArr, ok := cwMetrics.([]interface{})
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}

	cw := cwArr[0].(map[string]interface{})
	if cw["Namespace"] != Namespace {
		t.Errorf("expected namespace %s, got %v", Namespace, cw["Namespace"])
	}

	if doc["Operation"] != "transcode" {
		t.Errorf("expected Operation=transcode, got %v", doc["Operation"])
	}
	if doc["EncodeMs"] != 1234.5 {
		t.Errorf("expected EncodeMs=1234.5, got %v", doc["EncodeMs"])
	}
	if doc["ImagesProcessed"] != float64(1) {
		t.Errorf("expected ImagesProcessed=1, got %v", doc["ImagesProcessed"])
	}
	if doc["sourceKey"] != "uploads/interior/loft-42/original/photo.png" {
		t.Errorf("unexpected sourceKey property: %v", doc["sourceKey"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	rec := New()
	rec.Flush() // No metrics recorded, so no output

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty recorder, got: %s", buf.String())
	}
}

func TestRecorder_Add(t *testing.T) {
	functionName = ""
	rec := New()
	rec.Add("RenditionFailures", 1)
	rec.Add("RenditionFailures", 1)

	if v := rec.values["RenditionFailures"]; v != 2 {
		t.Errorf("expected RenditionFailures=2, got %v", v)
	}
	if len(rec.defs) != 1 {
		t.Errorf("expected a single metric definition, got %d", len(rec.defs))
	}
	if rec.defs[0].Unit != UnitCount {
		t.Errorf("expected unit Count, got %v", rec.defs[0].Unit)
	}
}

func TestRecorder_DeterministicDefinitionOrder(t *testing.T) {
	functionName = ""
	rec := New().
		Metric("EncodeMs", 100, UnitMilliseconds).
		Count("VideosProcessed").
		Count("ImagesProcessed")

	want := []string{"EncodeMs", "VideosProcessed", "ImagesProcessed"}
	for i, name := range want {
		if rec.defs[i].Name != name {
			t.Errorf("definition %d = %s, want %s", i, rec.defs[i].Name, name)
		}
	}
}
