package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"todosync/internal/logging"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "info", Encoding: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("visible")
	_ = logger.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["msg"] != "visible" {
		t.Errorf("expected msg 'visible', got %v", entry["msg"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp key")
	}
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "chatty"}, &buf)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug suppressed at info level, got %q", buf.String())
	}
}

func TestForCLI(t *testing.T) {
	var buf bytes.Buffer
	logging.ForCLI(false, &buf).Debug("quiet")
	if buf.Len() != 0 {
		t.Errorf("expected no output without debug, got %q", buf.String())
	}

	logging.ForCLI(true, &buf).Debug("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("expected debug output, got %q", buf.String())
	}
}
