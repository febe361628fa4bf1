package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewWritesServiceAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "matercare-api", "info")
	logger.Info("intent_classified", "intent", "retrieve")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["service"] != "matercare-api" || line["msg"] != "intent_classified" || line["intent"] != "retrieve" {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestNewHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "svc", "warn")
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
