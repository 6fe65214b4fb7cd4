package transport_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/serializer"
	"github.com/fxsml/busroute/transport"
	"github.com/fxsml/busroute/transport/inmem"
)

type recordingBus struct {
	mu     sync.Mutex
	stamps [][]envelope.Stamp
	err    error
}

func (b *recordingBus) Dispatch(_ context.Context, msg any, stamps ...envelope.Stamp) (*envelope.Envelope, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stamps = append(b.stamps, stamps)
	if b.err != nil {
		return nil, b.err
	}
	return envelope.New(msg, stamps...), nil
}

func (b *recordingBus) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stamps)
}

func TestNewWorker_RequiresReceiverAndBus(t *testing.T) {
	_, err := transport.NewWorker(transport.WorkerConfig{Bus: &recordingBus{}})
	assert.Error(t, err)
	_, err = transport.NewWorker(transport.WorkerConfig{Receiver: inmem.New(inmem.Config{})})
	assert.Error(t, err)
}

func TestWorker_RunOnce(t *testing.T) {
	q := inmem.New(inmem.Config{})
	bus := &recordingBus{}
	w, err := transport.NewWorker(transport.WorkerConfig{Transport: "async", Receiver: q, Bus: bus})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, q.Send(ctx, envelope.New("payload",
		envelope.NewTransportNamesStamp("async"),
		envelope.CorrelationStamp{CorrelationID: "c-1"},
		envelope.DispatchAfterCurrentBusStamp{},
	)))

	env, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, "payload", env.Message())
	assert.Equal(t, []envelope.Stamp{
		envelope.CorrelationStamp{CorrelationID: "c-1"},
		envelope.ReceivedStamp{Transport: "async"},
	}, env.Stamps())
}

func TestWorker_Run(t *testing.T) {
	q := inmem.New(inmem.Config{})
	bus := &recordingBus{err: errors.New("handler failed")}
	w, err := transport.NewWorker(transport.WorkerConfig{Transport: "async", Receiver: q, Bus: bus})
	require.NoError(t, err)

	ctx := context.Background()
	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, q.Send(ctx, envelope.New(msg)))
	}
	require.NoError(t, q.Close())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after the queue was closed")
	}
	assert.Equal(t, 3, bus.calls(), "dispatch errors do not stop the worker")
}

type emptyReceiver struct{ calls int }

func (r *emptyReceiver) Receive(context.Context) (*envelope.Envelope, error) {
	r.calls++
	return nil, transport.ErrEmpty
}

func TestWorker_RunPollsUntilCanceled(t *testing.T) {
	r := &emptyReceiver{}
	w, err := transport.NewWorker(transport.WorkerConfig{
		Receiver:     r,
		Bus:          busroute.BusFunc((&recordingBus{}).Dispatch),
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Run(ctx))
	assert.Greater(t, r.calls, 1)
}

type failingReceiver struct{}

func (failingReceiver) Receive(context.Context) (*envelope.Envelope, error) {
	return nil, errors.New("connection reset")
}

func TestWorker_RunStopsOnReceiveError(t *testing.T) {
	w, err := transport.NewWorker(transport.WorkerConfig{Transport: "redis", Receiver: failingReceiver{}, Bus: &recordingBus{}})
	require.NoError(t, err)
	err = w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

type parcel struct {
	ID string `json:"id"`
}

type unregistered struct {
	ID string `json:"id"`
}

func TestWorker_RunSkipsUndecodableEnvelopes(t *testing.T) {
	types := serializer.Types{}
	serializer.Register[parcel](types)
	q := inmem.New(inmem.Config{Codec: serializer.NewCodecs(types, "")})
	bus := &recordingBus{}
	w, err := transport.NewWorker(transport.WorkerConfig{Transport: "async", Receiver: q, Bus: bus})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, q.Send(ctx, envelope.New(unregistered{ID: "1"})))
	require.NoError(t, q.Send(ctx, envelope.New(parcel{ID: "2"})))
	require.NoError(t, q.Close())

	assert.NoError(t, w.Run(ctx))
	assert.Equal(t, 1, bus.calls())
}

func TestWorker_RunOnceReportsDecodeError(t *testing.T) {
	q := inmem.New(inmem.Config{Codec: serializer.NewCodecs(serializer.Types{}, "")})
	w, err := transport.NewWorker(transport.WorkerConfig{Receiver: q, Bus: &recordingBus{}})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, q.Send(ctx, envelope.New(unregistered{ID: "1"})))
	_, err = w.RunOnce(ctx)
	assert.ErrorIs(t, err, transport.ErrDecode)
	assert.ErrorIs(t, err, serializer.ErrUnknownType)
}

type blockingBus struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingBus) Dispatch(_ context.Context, msg any, stamps ...envelope.Stamp) (*envelope.Envelope, error) {
	b.started <- struct{}{}
	<-b.release
	return envelope.New(msg, stamps...), nil
}

func TestWorker_RunConcurrently(t *testing.T) {
	q := inmem.New(inmem.Config{})
	bus := &blockingBus{started: make(chan struct{}, 2), release: make(chan struct{})}
	w, err := transport.NewWorker(transport.WorkerConfig{Receiver: q, Bus: bus, Concurrency: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Send(ctx, envelope.New("a")))
	require.NoError(t, q.Send(ctx, envelope.New("b")))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for range 2 {
		select {
		case <-bus.started:
		case <-time.After(time.Second):
			t.Fatal("dispatches did not run in parallel")
		}
	}

	cancel()
	select {
	case <-done:
		t.Fatal("worker returned before in-flight dispatches finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(bus.release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_RunWaitsForLimiter(t *testing.T) {
	q := inmem.New(inmem.Config{})
	bus := &recordingBus{}
	var waits int
	limiter := transport.LimiterFunc(func(context.Context) error {
		waits++
		if waits > 2 {
			return errors.New("limit exceeded")
		}
		return nil
	})
	w, err := transport.NewWorker(transport.WorkerConfig{Receiver: q, Bus: bus, Limiter: limiter})
	require.NoError(t, err)

	ctx := context.Background()
	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, q.Send(ctx, envelope.New(msg)))
	}

	err = w.Run(ctx)
	assert.EqualError(t, err, "limit exceeded")
	assert.Equal(t, 2, bus.calls())
}
