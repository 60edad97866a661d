package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(&buf, FormatJSON, slog.LevelInfo)
	log.Info("decoded", "tensors", 3)

	out := buf.String()
	if !strings.Contains(out, `"msg":"decoded"`) {
		t.Fatalf("expected msg in JSON output, got: %s", out)
	}
	if !strings.Contains(out, `"tensors":3`) {
		t.Fatalf("expected tensors attr in JSON output, got: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(&buf, FormatText, slog.LevelWarn)
	log.Info("hidden")
	log.Debug("hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got: %s", buf.String())
	}
	log.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn output, got: %s", buf.String())
	}
}

func TestPrettyPlain(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(&buf, FormatPretty, slog.LevelDebug)
	log.With("file", "a b.safetensors").Debug("open", "bytes", 12)

	out := buf.String()
	if strings.Contains(out, "\033[") {
		t.Fatalf("expected no colour codes for non-terminal writer, got: %q", out)
	}
	for _, want := range []string{"DEBUG", "open", `file="a b.safetensors"`, "bytes=12"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestPrettyGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil, false)
	slog.New(h).WithGroup("req").Info("done", "status", 200, slog.Group("size", "in", 8))

	out := buf.String()
	if !strings.Contains(out, "req.status=200") {
		t.Fatalf("expected grouped key, got: %s", out)
	}
	if !strings.Contains(out, "req.size.in=8") {
		t.Fatalf("expected nested group key, got: %s", out)
	}
}

func TestPrettyColour(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, nil, true)).Error("bad")
	if !strings.Contains(buf.String(), ansiRed) {
		t.Fatalf("expected red level, got: %q", buf.String())
	}
}

func TestPrettyEnabled(t *testing.T) {
	t.Parallel()
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}, false)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error enabled at warn level")
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New(&buf, FormatText, slog.LevelInfo))
	FromContext(ctx).Info("via context")
	if !strings.Contains(buf.String(), "via context") {
		t.Fatalf("expected message via context logger, got: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without logger returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q): got %v want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "pretty", "JSON", "text"} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q): %v", in, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
