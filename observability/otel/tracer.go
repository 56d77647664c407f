// Package otel adapts observability.Tracer to OpenTelemetry.
package otel

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
)

// Tracer implements observability.Tracer using OpenTelemetry.
type Tracer struct{ tracer trace.Tracer }

// NewTracer returns a Tracer backed by tp, or by the global provider when
// tp is nil.
func NewTracer(serviceName string, tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{tracer: tp.Tracer(serviceName)}
}

// NewStdoutProvider builds an SDK provider that writes finished spans as
// JSON to w. Callers own Shutdown.
func NewStdoutProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("stdout exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil
}

func (t *Tracer) StartSpan(ctx context.Context, name string) (observability.Span, context.Context) {
	ctx, span := t.tracer.Start(ctx, name)
	return &spanWrapper{span: span, ctx: ctx}, ctx
}

func (t *Tracer) SpanFromContext(ctx context.Context) observability.Span {
	return &spanWrapper{span: trace.SpanFromContext(ctx), ctx: ctx}
}

type spanWrapper struct {
	span trace.Span
	ctx  context.Context
}

func (s *spanWrapper) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(toAttribute(key, value))
}

func (s *spanWrapper) SetStatus(code observability.StatusCode, message string) {
	switch code {
	case observability.StatusCodeOk:
		s.span.SetStatus(codes.Ok, "")
	case observability.StatusCodeError:
		s.span.SetStatus(codes.Error, message)
	default:
		s.span.SetStatus(codes.Unset, "")
	}
}

func (s *spanWrapper) AddEvent(name string, attrs map[string]interface{}) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, toAttribute(k, v))
	}
	s.span.AddEvent(name, trace.WithAttributes(kvs...))
}

func (s *spanWrapper) End()                     { s.span.End() }
func (s *spanWrapper) Context() context.Context { return s.ctx }

func toAttribute(key string, v interface{}) attribute.KeyValue {
	switch x := v.(type) {
	case string:
		return attribute.String(key, x)
	case bool:
		return attribute.Bool(key, x)
	case int:
		return attribute.Int(key, x)
	case int64:
		return attribute.Int64(key, x)
	case float64:
		return attribute.Float64(key, x)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

var _ observability.Tracer = (*Tracer)(nil)
var _ observability.Span = (*spanWrapper)(nil)
