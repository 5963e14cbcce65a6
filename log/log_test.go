package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerWritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelDebug).Module("vm")
	l.Debug("frame enter", "depth", 3)
	out := buf.String()
	if !strings.Contains(out, "frame enter") || !strings.Contains(out, "depth=3") {
		t.Errorf("unexpected log output: %q", out)
	}
	if !strings.Contains(out, "module=vm") {
		t.Errorf("module attribute missing: %q", out)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelInfo)
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record leaked through info level: %q", buf.String())
	}
	l.Info("shown")
	if buf.Len() == 0 {
		t.Errorf("info record dropped")
	}
}

func TestDiscard(t *testing.T) {
	// Must accept records without panicking or writing anywhere.
	l := Discard()
	l.Error("nothing happens", "k", "v")
}
