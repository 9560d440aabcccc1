package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsHeaderAndFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	handler := newConsoleHandler(&buf, levelVar, false)
	logger := slog.New(handler)

	logger.Info("indexed file", "component", "indexer", "path", "/m/a.mp4", "segments", 3)

	out := buf.String()
	if !strings.Contains(out, "INFO ") {
		t.Fatalf("expected INFO level label, got %q", out)
	}
	if !strings.Contains(out, "[indexer]") {
		t.Fatalf("expected component tag, got %q", out)
	}
	if !strings.Contains(out, "indexed file") {
		t.Fatalf("expected message, got %q", out)
	}
	if !strings.Contains(out, "path: /m/a.mp4") {
		t.Fatalf("expected path field, got %q", out)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	handler := newConsoleHandler(&buf, levelVar, false)
	logger := slog.New(handler)

	logger.Info("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below configured level, got %q", buf.String())
	}

	logger.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected warn message, got %q", buf.String())
	}
}

func TestJSONHandlerRenamesReservedKeys(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	handler := newJSONHandler(&buf, levelVar, false)
	logger := slog.New(handler)

	logger.Info("hello", "path", "/m/a.mp4")

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal JSON log line: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in JSON output, got %v", key, decoded)
		}
	}
	if decoded["path"] != "/m/a.mp4" {
		t.Errorf("decoded[path] = %v, want /m/a.mp4", decoded["path"])
	}
}
