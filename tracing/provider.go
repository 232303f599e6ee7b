package tracing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const instrumentation = "github.com/viant/workgrid"

var installed struct {
	once     sync.Once
	err      error
	provider *sdktrace.TracerProvider
	output   io.Closer
}

// Init exports spans as JSON lines to outputFile, or to stdout when empty.
// Only the first successful Init or InitWithExporter takes effect.
func Init(serviceName, serviceVersion, outputFile string) error {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer
	)
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		w, closer = f, f
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}
	return install(serviceName, serviceVersion, exporter, closer)
}

// InitWithExporter installs a provider backed by exporter (OTLP, an in-memory
// recorder in tests, ...).
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	return install(serviceName, serviceVersion, exporter, nil)
}

func install(serviceName, serviceVersion string, exporter sdktrace.SpanExporter, output io.Closer) error {
	if exporter == nil {
		return errors.New("tracing: exporter is nil")
	}
	installed.once.Do(func() {
		res, err := resource.New(context.Background(), resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		))
		if err != nil {
			installed.err = err
			return
		}
		installed.provider = sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithResource(res),
		)
		installed.output = output
		otel.SetTracerProvider(installed.provider)
	})
	return installed.err
}

// Shutdown flushes pending spans and closes the output file opened by Init.
func Shutdown(ctx context.Context) error {
	if installed.provider == nil {
		return nil
	}
	err := installed.provider.Shutdown(ctx)
	if installed.output != nil {
		if cErr := installed.output.Close(); cErr != nil && err == nil {
			err = cErr
		}
		installed.output = nil
	}
	return err
}
