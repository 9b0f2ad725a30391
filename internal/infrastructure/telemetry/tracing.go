package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of service and gateway spans.
const TracerName = "procurement"

// Span attribute keys
const (
	SpanAttrOrderID     = "order_id"
	SpanAttrPONumber    = "po_number"
	SpanAttrOrderStatus = "order_status"
	SpanAttrVersion     = "order_version"
	SpanAttrTransition  = "transition"
	SpanAttrCompanyID   = "company_id"
	SpanAttrProductID   = "product_id"
	SpanAttrPolicy      = "policy"
	SpanAttrQuantity    = "quantity"
	SpanAttrRemaining   = "remaining"
	SpanAttrErrorCode   = "error_code"
)

// SpanOption adds start-time attributes to a span.
type SpanOption func(*[]attribute.KeyValue)

func WithAttribute(key string, value any) SpanOption {
	return func(attrs *[]attribute.KeyValue) {
		*attrs = append(*attrs, attr(key, value))
	}
}

// StartServiceSpan opens an internal span named service.method. The caller ends it.
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return start(ctx, trace.SpanKindInternal, service+"."+method, opts)
}

// StartClientSpan opens a client span around a gateway call.
func StartClientSpan(ctx context.Context, gateway, operation string, opts ...SpanOption) (context.Context, trace.Span) {
	return start(ctx, trace.SpanKindClient, gateway+"."+operation, opts)
}

func start(ctx context.Context, kind trace.SpanKind, name string, opts []SpanOption) (context.Context, trace.Span) {
	var attrs []attribute.KeyValue
	for _, opt := range opts {
		opt(&attrs)
	}
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
}

// SetAttributes takes alternating keys and values. Pairs without a string key
// and a trailing key without a value are dropped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 1; i < len(keyValues); i += 2 {
		if key, ok := keyValues[i-1].(string); ok {
			attrs = append(attrs, attr(key, keyValues[i]))
		}
	}
	span.SetAttributes(attrs...)
}

func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// TraceID returns the hex trace id carried by ctx, or "".
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func attr(key string, value any) attribute.KeyValue {
	k := attribute.Key(key)
	switch v := value.(type) {
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int64:
		return k.Int64(v)
	case float64:
		return k.Float64(v)
	case string:
		return k.String(v)
	case []string:
		return k.StringSlice(v)
	case fmt.Stringer:
		return k.String(v.String())
	}
	return k.String(fmt.Sprint(value))
}
