package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(h)

	now := time.Now()
	logger.Info("installing packages", "manager", "apt")

	output := buf.String()
	if !strings.Contains(output, "INFO") {
		t.Errorf("expected level INFO in output, got: %q", output)
	}
	if !strings.Contains(output, "installing packages") {
		t.Errorf("expected message in output, got: %q", output)
	}
	if !strings.Contains(output, "manager=apt") {
		t.Errorf("expected attribute in output, got: %q", output)
	}
	if !strings.Contains(output, now.Format(time.Kitchen)) {
		t.Errorf("expected time %q in output, got: %q", now.Format(time.Kitchen), output)
	}
}

func TestHandler_LevelTags(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{LevelTrace, "TRACE"},
		{slog.LevelDebug, "DEBUG"},
		{slog.LevelInfo, "INFO"},
		{LevelOK, "OK"},
		{slog.LevelWarn, "WARN"},
		{slog.LevelError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewHandler(&buf, &slog.HandlerOptions{Level: LevelTrace})
			r := slog.NewRecord(time.Time{}, tt.level, "step", 0)
			if err := h.Handle(t.Context(), r); err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			if !strings.HasPrefix(buf.String(), tt.want) {
				t.Errorf("output = %q, want prefix %q", buf.String(), tt.want)
			}
		})
	}
}

func TestHandler_SingleLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil))

	logger.Warn("flutter doctor reported:\n[!] Android toolchain")

	output := buf.String()
	if strings.Count(output, "\n") != 1 {
		t.Errorf("expected exactly one line, got: %q", output)
	}
}

func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, nil)
	logger := slog.New(h).With("step", "jdk")

	logger.Info("message", "local", "val")

	output := buf.String()
	if !strings.Contains(output, "step=jdk") {
		t.Errorf("expected common attribute in output, got: %q", output)
	}
	if !strings.Contains(output, "local=val") {
		t.Errorf("expected local attribute in output, got: %q", output)
	}
}

func TestHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, nil)).WithGroup("android")

	logger.Info("component", "name", "emulator")

	if !strings.Contains(buf.String(), "android.name=emulator") {
		t.Errorf("expected grouped key, got: %q", buf.String())
	}
}

func TestHandler_Enabled(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})

	ctx := t.Context()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected Info level to be disabled when min level is Warn")
	}
	if h.Enabled(ctx, LevelOK) {
		t.Error("expected OK level to be disabled when min level is Warn")
	}
	if !h.Enabled(ctx, slog.LevelWarn) {
		t.Error("expected Warn level to be enabled")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("expected Error level to be enabled")
	}
}

func TestHandler_NoTime(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, nil)

	r := slog.NewRecord(time.Time{}, slog.LevelInfo, "no time", 0)
	if err := h.Handle(t.Context(), r); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if got := buf.String(); !strings.HasPrefix(got, "INFO") {
		t.Errorf("expected no time in output, got: %q", got)
	}
}

func TestHandler_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	logger.Info("sensitive data", "api_key", "secret12345", "GITHUB_TOKEN", "ghp_abcdef")

	output := buf.String()
	if strings.Contains(output, "secret12345") {
		t.Error("api_key value should be redacted")
	}
	if !strings.Contains(output, "api_key=****2345") {
		t.Errorf("expected masked api_key, got: %q", output)
	}
	if !strings.Contains(output, "GITHUB_TOKEN=****cdef") {
		t.Errorf("expected masked token, got: %q", output)
	}

	buf.Reset()
	logger.Info("binding", "value", "ghp_secrettoken")
	if !strings.Contains(buf.String(), "value=****oken") {
		t.Errorf("expected masked value based on prefix, got: %q", buf.String())
	}

	buf.Reset()
	logger.Info("binding", "name", "JAVA_HOME", "value", "/usr/lib/jvm/java-17")
	if !strings.Contains(buf.String(), "value=/usr/lib/jvm/java-17") {
		t.Errorf("non-sensitive value should be printed verbatim, got: %q", buf.String())
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "********"},
		{"abcd", "********"},
		{"abcde", "****bcde"},
	}
	for _, tt := range tests {
		if got := MaskValue(tt.in); got != tt.want {
			t.Errorf("MaskValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMultiHandler(t *testing.T) {
	var text, warnOnly bytes.Buffer
	h := NewMultiHandler(
		NewHandler(&text, &slog.HandlerOptions{Level: slog.LevelInfo}),
		NewHandler(&warnOnly, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With("run", 1)

	logger.Info("info line")
	logger.Warn("warn line")

	if !strings.Contains(text.String(), "info line") || !strings.Contains(text.String(), "warn line") {
		t.Errorf("info handler missing lines: %q", text.String())
	}
	if strings.Contains(warnOnly.String(), "info line") {
		t.Errorf("warn handler should not receive info: %q", warnOnly.String())
	}
	if !strings.Contains(warnOnly.String(), "run=1") {
		t.Errorf("attrs should propagate to every handler: %q", warnOnly.String())
	}
}
