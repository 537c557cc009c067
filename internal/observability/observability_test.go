package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	otellog "go.opentelemetry.io/otel/log"
)

func TestConsoleHandler(t *testing.T) {
	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, out string)
	}{
		{"text", "text", func(t *testing.T, out string) {
			if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "user=u1") {
				t.Errorf("text output = %q", out)
			}
		}},
		{"json", "json", func(t *testing.T, out string) {
			var record map[string]any
			if err := json.Unmarshal([]byte(out), &record); err != nil {
				t.Fatalf("decoding: %v (%q)", err, out)
			}
			if record["user"] != "u1" {
				t.Errorf("json record = %v", record)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h, shutdown, err := NewHandler(context.Background(), Options{
				Level:    slog.LevelInfo,
				Format:   tt.format,
				Exporter: ExporterStderr,
				Writer:   &buf,
			})
			if err != nil {
				t.Fatalf("NewHandler: %v", err)
			}
			defer func() { _ = shutdown(context.Background()) }()

			logger := slog.New(h)
			logger.Debug("filtered")
			logger.Info("hello", "user", "u1")

			out := strings.TrimSpace(buf.String())
			if strings.Contains(out, "filtered") {
				t.Errorf("debug record not filtered: %q", out)
			}
			tt.check(t, out)
		})
	}
}

func TestStdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	h, shutdown, err := NewHandler(context.Background(), Options{
		Level:    slog.LevelWarn,
		Exporter: ExporterStdout,
		Writer:   &buf,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	logger := slog.New(h)
	logger.Info("below threshold")
	logger.Warn("refresh failed", "status", 401)

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "refresh failed") {
		t.Errorf("expected warning exported, got %q", out)
	}
	if strings.Contains(out, "below threshold") {
		t.Errorf("info record should be dropped by minimum severity, got %q", out)
	}
}

func TestNewHandlerRejectsUnknownSettings(t *testing.T) {
	ctx := context.Background()
	if _, _, err := NewHandler(ctx, Options{Exporter: "syslog"}); err == nil {
		t.Error("expected error for unknown exporter")
	}
	if _, _, err := NewHandler(ctx, Options{Exporter: ExporterStderr, Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  otellog.Severity
	}{
		{slog.LevelDebug, otellog.SeverityDebug},
		{slog.LevelInfo, otellog.SeverityInfo},
		{slog.LevelWarn, otellog.SeverityWarn},
		{slog.LevelError, otellog.SeverityError},
		{slog.LevelError + 4, otellog.SeverityError},
	}
	for _, tt := range tests {
		if got := severity(tt.level).Severity(); got != tt.want {
			t.Errorf("severity(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
