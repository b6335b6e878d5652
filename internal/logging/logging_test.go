package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, opts Options) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := New(opts, &buf)
	if err != nil {
		t.Fatalf("New(%+v): %v", opts, err)
	}
	return logger, &buf
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"msg=\"analysis finished\"", "algorithm=rta"}},
		{"", []string{"algorithm=rta"}},
		{"json", []string{`"msg":"analysis finished"`, `"algorithm":"rta"`}},
		{"pretty", []string{"analysis finished", "algorithm=rta"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			logger, buf := newTestLogger(t, Options{Level: "info", Format: tt.format})
			logger.Info("analysis finished", "algorithm", "rta")
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected %q in output, got: %s", want, buf.String())
				}
			}
			if strings.Contains(buf.String(), "\x1b[") {
				t.Errorf("expected no color codes for a non-terminal writer, got: %q", buf.String())
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, Options{Level: "WARN"})
	child := logger.With("component", "catalog")

	child.Info("family step", "test", "gfb")
	child.Warn("search space exceeds limit", "algorithm", "baruah")

	out := buf.String()
	if strings.Contains(out, "family step") {
		t.Errorf("INFO record passed a WARN logger: %s", out)
	}
	if !strings.Contains(out, "component=catalog") || !strings.Contains(out, "algorithm=baruah") {
		t.Errorf("expected the WARN record with its attributes, got: %s", out)
	}
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	for _, opts := range []Options{
		{Level: "verbose"},
		{Format: "xml"},
		{HealthLevel: "loud"},
	} {
		if _, err := New(opts, &bytes.Buffer{}); err == nil {
			t.Errorf("New(%+v) accepted an unknown setting", opts)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
		}
	}
}

func TestOptions_Health(t *testing.T) {
	if got, _ := (Options{}).Health(); got != slog.LevelDebug {
		t.Errorf("default health level = %v, want DEBUG", got)
	}
	if got, _ := (Options{HealthLevel: "info"}).Health(); got != slog.LevelInfo {
		t.Errorf("health level = %v, want INFO", got)
	}
}
