// Package tracing records routed dispatches as OpenTelemetry spans.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
)

// ScopeName is the instrumentation scope of the tracer.
const ScopeName = "github.com/fxsml/busroute"

// Attribute keys.
const (
	AttrCategory      = attribute.Key("busroute.category")
	AttrMessage       = attribute.Key("busroute.message")
	AttrMode          = attribute.Key("busroute.mode")
	AttrStamps        = attribute.Key("busroute.stamps")
	AttrTransports    = attribute.Key("busroute.transports")
	AttrCorrelationID = attribute.Key("busroute.correlation_id")
)

// Observer implements busroute.Observer. Each dispatch is one span that is a
// child of the span in the dispatch context.
type Observer struct {
	tracer trace.Tracer
}

// New creates an observer. If tp is nil, uses otel.GetTracerProvider().
func New(tp trace.TracerProvider) *Observer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Observer{tracer: tp.Tracer(ScopeName)}
}

// OnDispatch implements busroute.Observer.
func (o *Observer) OnDispatch(ctx context.Context, info busroute.DispatchInfo) context.Context {
	attrs := []attribute.KeyValue{
		AttrCategory.String(info.Category.String()),
		AttrMessage.String(info.Key.String()),
		AttrMode.String(info.Mode.String()),
		AttrStamps.Int(len(info.Stamps)),
	}
	if s, ok := envelope.LastOf[envelope.TransportNamesStamp](info.Stamps); ok {
		attrs = append(attrs, AttrTransports.StringSlice(s.Names))
	}
	if s, ok := envelope.LastOf[envelope.CorrelationStamp](info.Stamps); ok && s.CorrelationID != "" {
		attrs = append(attrs, AttrCorrelationID.String(s.CorrelationID))
	}

	kind := trace.SpanKindInternal
	if info.Mode == busroute.Async {
		kind = trace.SpanKindProducer
	}
	ctx, _ = o.tracer.Start(ctx, "dispatch "+info.Key.Name(),
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	return ctx
}

// OnComplete implements busroute.Observer.
func (o *Observer) OnComplete(ctx context.Context, _ busroute.DispatchInfo, err error, _ time.Duration) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

var _ busroute.Observer = (*Observer)(nil)
