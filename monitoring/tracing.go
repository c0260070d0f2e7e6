package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "kubecrud"

// Tracer falls back to a noop tracer until a TracerProvider is registered.
var Tracer = otel.Tracer(tracerName)

// StartClusterSpan starts a span around one cluster API call.
// Callers must call span.End().
func StartClusterSpan(ctx context.Context, operation, kind, name, namespace string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, "Gateway."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("k8s.resource.kind", kind),
			attribute.String("k8s.resource.name", name),
			attribute.String("k8s.namespace", namespace),
		),
	)
}

// RecordSpanError marks the span as failed. A nil err is ignored.
func RecordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
