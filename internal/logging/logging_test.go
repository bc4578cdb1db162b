package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestInit_JSONOutputWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})
	t.Cleanup(func() { Init(Config{Level: ErrorLevel, Output: &bytes.Buffer{}}) })

	log := WithComponent("outbox")
	log.Info().Int("pending", 2).Msg("drain started")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "outbox" {
		t.Errorf("expected component 'outbox', got %v", entry["component"])
	}
	if entry["message"] != "drain started" {
		t.Errorf("expected message 'drain started', got %v", entry["message"])
	}
}

func TestInit_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})
	t.Cleanup(func() { Init(Config{Level: ErrorLevel, Output: &bytes.Buffer{}}) })

	Logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug line to be filtered, got %q", buf.String())
	}
}
