package tracing

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// Propagation headers
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// WithSpan returns a context carrying the trace and span ids
func WithSpan(ctx context.Context, traceID TraceID, spanID SpanID) context.Context {
	ctx = context.WithValue(ctx, traceIDKey, traceID)
	return context.WithValue(ctx, spanIDKey, spanID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	return traceID
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) SpanID {
	spanID, _ := ctx.Value(spanIDKey).(SpanID)
	return spanID
}

// Extract returns ctx extended with the trace context found in h
func Extract(ctx context.Context, h http.Header) context.Context {
	if traceID := h.Get(HeaderTraceID); traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, TraceID(traceID))
	}
	if spanID := h.Get(HeaderSpanID); spanID != "" {
		ctx = context.WithValue(ctx, spanIDKey, SpanID(spanID))
	}
	return ctx
}

// Inject writes the trace context of ctx into h
func Inject(ctx context.Context, h http.Header) {
	if traceID := GetTraceID(ctx); traceID != "" {
		h.Set(HeaderTraceID, string(traceID))
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		h.Set(HeaderSpanID, string(spanID))
	}
}

// Field returns a log field for the trace carried by ctx
func Field(ctx context.Context) zap.Field {
	if traceID := GetTraceID(ctx); traceID != "" {
		return zap.String("trace_id", string(traceID))
	}
	return zap.Skip()
}
