// Package monitoring provides distributed tracing for the tweet filter client
package monitoring

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tweet-filter"

// InitTracing installs the global tracer provider.
// Spans are exported to Jaeger when jaegerEndpoint is set and kept in-process otherwise.
func InitTracing(serviceName, jaegerEndpoint string) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	}

	if jaegerEndpoint != "" {
		exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return tp, nil
}

// ShutdownTracing flushes and shuts down the tracer provider
func ShutdownTracing(ctx context.Context, tp *sdktrace.TracerProvider, logger *logrus.Logger) {
	if err := tp.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Error shutting down tracer provider")
	}
}

// CreateSpan creates a new span with the given name
func CreateSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

// SetSpanAttributes sets attributes on the given span
func SetSpanAttributes(span trace.Span, attributes map[string]interface{}) {
	var attrs []attribute.KeyValue
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
	}
	span.SetAttributes(attrs...)
}

// SetSpanError marks the span as failed
func SetSpanError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}

// AddSpanEvent adds an event to the given span
func AddSpanEvent(span trace.Span, eventName string, attributes map[string]interface{}) {
	var attrs []attribute.KeyValue
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
	}
	span.AddEvent(eventName, trace.WithAttributes(attrs...))
}
