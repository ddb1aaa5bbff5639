package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Output: &buf, Service: "ticketing"})
	log.Debug("hello", "event_id", "e1")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if line["service"] != "ticketing" || line["event_id"] != "e1" || line["msg"] != "hello" {
		t.Errorf("unexpected line: %v", line)
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: FormatText, Output: &buf})
	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn line missing: %q", out)
	}
}
