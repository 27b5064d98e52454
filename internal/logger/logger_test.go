package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWritesToExtraWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(WithQuiet(), WithWriter(&buf))

	log.Info("setting updated", "key", "temperature")

	out := buf.String()
	if !strings.Contains(out, "setting updated") {
		t.Errorf("output %q should contain message", out)
	}
	if !strings.Contains(out, "key=temperature") {
		t.Errorf("output %q should contain text attribute", out)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(WithQuiet(), WithWriter(&buf), WithFormat(FormatJSON))

	log.Info("template created", "id", "t1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "template created" {
		t.Errorf("msg = %v, want template created", record["msg"])
	}
	if record["id"] != "t1" {
		t.Errorf("id = %v, want t1", record["id"])
	}
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	New(WithQuiet(), WithWriter(&buf)).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written at info level: %q", buf.String())
	}

	New(WithQuiet(), WithWriter(&buf), WithDebug()).Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug record missing with WithDebug: %q", buf.String())
	}
}

func TestQuietWithoutWriterDiscards(t *testing.T) {
	log := New(WithQuiet())
	// Must not panic
	log.Info("nothing")
	Discard().Error("nothing")
}
