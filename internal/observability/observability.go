// Package observability configures the process-wide slog logger.
//
// Records go either to a plain slog handler on stderr or through the
// OpenTelemetry log pipeline (otelslog bridge, SDK logger provider, minimum
// severity filter) to stdout or an OTLP collector. OTLP exporters read their
// endpoint and headers from the standard OTEL_EXPORTER_OTLP_* variables.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/httplog/v3"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName identifies records emitted through the otelslog bridge.
const instrumentationName = "github.com/florianilch/pandal-client"

// Supported exporters.
const (
	ExporterStderr   = "stderr"
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// ShutdownFunc flushes and releases logging resources.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Options controls logger construction.
type Options struct {
	Level    slog.Level
	Format   string // text|json, applies to the stderr exporter
	Exporter string

	// Writer overrides the destination of the stderr and stdout exporters.
	Writer io.Writer
}

// Instrument installs the configured logger as slog's default.
// The returned ShutdownFunc must be called before exit to flush buffered records.
func Instrument(ctx context.Context, opts Options) (ShutdownFunc, error) {
	handler, shutdown, err := NewHandler(ctx, opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return shutdown, nil
}

// NewHandler builds the slog handler for opts without installing it.
func NewHandler(ctx context.Context, opts Options) (slog.Handler, ShutdownFunc, error) {
	switch opts.Exporter {
	case "", ExporterStderr:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		h, err := consoleHandler(w, opts.Level, opts.Format)
		return h, noopShutdown, err

	case ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdoutlog.New(stdoutlog.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("creating stdout log exporter: %w", err)
		}
		// Synchronous export keeps CLI output ordered
		return otelHandler(sdklog.NewSimpleProcessor(exporter), opts.Level)

	case ExporterOTLPHTTP:
		exporter, err := otlploghttp.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("creating otlp http log exporter: %w", err)
		}
		return otelHandler(sdklog.NewBatchProcessor(exporter), opts.Level)

	case ExporterOTLPGRPC:
		exporter, err := otlploggrpc.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("creating otlp grpc log exporter: %w", err)
		}
		return otelHandler(sdklog.NewBatchProcessor(exporter), opts.Level)

	default:
		return nil, nil, fmt.Errorf("unsupported log exporter: %q", opts.Exporter)
	}
}

func consoleHandler(w io.Writer, level slog.Level, format string) (slog.Handler, error) {
	switch format {
	case "", "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), nil
	case "json":
		// ECS field names, matching the request attributes of the API client
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: httplog.SchemaECS.Concise(true).ReplaceAttr,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %q", format)
	}
}

func otelHandler(processor sdklog.Processor, level slog.Level) (slog.Handler, ShutdownFunc, error) {
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(minsev.NewLogProcessor(processor, severity(level))),
	)
	global.SetLoggerProvider(provider)

	handler := otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))

	shutdown := func(ctx context.Context) error {
		return errors.Join(provider.ForceFlush(ctx), provider.Shutdown(ctx))
	}
	return handler, shutdown, nil
}

// severity maps a slog level onto the closest OpenTelemetry severity.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level < slog.LevelInfo:
		return minsev.SeverityDebug
	case level < slog.LevelWarn:
		return minsev.SeverityInfo
	case level < slog.LevelError:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
