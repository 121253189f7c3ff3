package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ShutdownFunc flushes pending spans and releases the exporter
type ShutdownFunc func(context.Context) error

// Config holds tracer provider settings
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	PrettyPrint    bool
	Writer         io.Writer // defaults to stderr
}

// InitTracer installs a global tracer provider exporting spans as JSON lines.
func InitTracer(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		)),
	)

	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

// Noop is returned when tracing is disabled
func Noop(context.Context) error { return nil }
