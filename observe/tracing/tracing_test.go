package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/hierarchy"
)

type refundIssued struct{}

func (refundIssued) IsEvent() {}

func newObserver() (*Observer, *tracetest.SpanRecorder) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return New(tp), sr
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestObserver_Success(t *testing.T) {
	o, sr := newObserver()
	info := busroute.DispatchInfo{
		Category: busroute.CategoryEvent,
		Key:      hierarchy.KeyFor[refundIssued](),
		Mode:     busroute.Async,
		Stamps: []envelope.Stamp{
			envelope.NewTransportNamesStamp("redis", "audit"),
			envelope.CorrelationStamp{CorrelationID: "c-5"},
		},
	}

	ctx := o.OnDispatch(context.Background(), info)
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	o.OnComplete(ctx, info, nil, time.Millisecond)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "dispatch refundIssued", s.Name())
	assert.Equal(t, trace.SpanKindProducer, s.SpanKind())
	assert.Equal(t, codes.Unset, s.Status().Code)

	a := attrs(s)
	assert.Equal(t, "event", a[AttrCategory].AsString())
	assert.Equal(t, "async", a[AttrMode].AsString())
	assert.Equal(t, int64(2), a[AttrStamps].AsInt64())
	assert.Equal(t, []string{"redis", "audit"}, a[AttrTransports].AsStringSlice())
	assert.Equal(t, "c-5", a[AttrCorrelationID].AsString())
}

func TestObserver_Error(t *testing.T) {
	o, sr := newObserver()
	info := busroute.DispatchInfo{Category: busroute.CategoryEvent, Key: hierarchy.KeyFor[refundIssued]()}

	ctx := o.OnDispatch(context.Background(), info)
	o.OnComplete(ctx, info, errors.New("bus down"), time.Millisecond)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "bus down", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}
