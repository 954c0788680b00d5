package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	t.Setenv("DATA_CSV", "runtime/data/test_data.csv")
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	cfg, _, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.DataCSV != "runtime/data/test_data.csv" {
		t.Errorf("DataCSV = %q, want runtime/data/test_data.csv", cfg.DataCSV)
	}

	// Verify that slog global logger is configured for JSON output
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_AppliesLogLevel(t *testing.T) {
	t.Setenv("DATA_CSV", "runtime/data/test_data.csv")
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	_, log, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	log.Info("hidden")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("INFO log should be suppressed at warn level: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("WARN log should be written: %s", out)
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("DATA_CSV", "")

	var buf bytes.Buffer
	cfg, _, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}
