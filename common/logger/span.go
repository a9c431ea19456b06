package logger

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "basegraph.app/chat"

// SpanContext is a started span together with the context that carries it.
type SpanContext struct {
	ctx  context.Context
	span trace.Span
}

// StartSpan starts a child of the span in ctx. The context LogFields are
// copied onto the span so traces and logs can be joined on the same keys.
//
//	sc := logger.StartSpan(ctx, "relay.turn")
//	defer sc.End()
//	ctx = sc.Context()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) *SpanContext {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, opts...)

	if attrs := Attrs(ctx); len(attrs) > 0 {
		kv := make([]attribute.KeyValue, 0, len(attrs))
		for _, a := range attrs {
			kv = append(kv, attribute.String("chat."+a.Key, a.Value.String()))
		}
		span.SetAttributes(kv...)
	}
	return &SpanContext{ctx: ctx, span: span}
}

func (sc *SpanContext) Context() context.Context {
	return sc.ctx
}

func (sc *SpanContext) End() {
	sc.span.End()
}

func (sc *SpanContext) SetAttributes(kv ...attribute.KeyValue) {
	sc.span.SetAttributes(kv...)
}

// RecordError records err and marks the span failed.
func (sc *SpanContext) RecordError(err error) {
	if err == nil {
		return
	}
	sc.span.RecordError(err)
	sc.span.SetStatus(codes.Error, err.Error())
}
