// Package inmem provides an in-process queue transport.
//
// Envelopes are encoded on Send and decoded on Receive when a codec is
// configured, which makes the queue behave like a broker in tests.
package inmem

import (
	"context"
	"sync"

	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/serializer"
	"github.com/fxsml/busroute/transport"
)

// Config configures a Queue.
type Config struct {
	// Size is the queue capacity. Send blocks when the queue is full.
	// Default is 256.
	Size int

	// Codec encodes queued envelopes. If nil, envelopes are queued as is.
	Codec serializer.Codec
}

func (c Config) applyDefaults() Config {
	if c.Size <= 0 {
		c.Size = 256
	}
	return c
}

type item struct {
	env     *envelope.Envelope
	payload serializer.Payload
}

// Queue is a bounded in-memory transport.
type Queue struct {
	config Config
	ch     chan item
	done   chan struct{}
	once   sync.Once
}

// New creates a queue.
func New(config Config) *Queue {
	config = config.applyDefaults()
	return &Queue{
		config: config,
		ch:     make(chan item, config.Size),
		done:   make(chan struct{}),
	}
}

// Send implements transport.Sender.
func (q *Queue) Send(ctx context.Context, env *envelope.Envelope) error {
	var it item
	if q.config.Codec != nil {
		p, err := q.config.Codec.Encode(env)
		if err != nil {
			return err
		}
		it.payload = p
	} else {
		it.env = env
	}

	select {
	case <-q.done:
		return transport.ErrClosed
	default:
	}
	select {
	case q.ch <- it:
		return nil
	case <-q.done:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive implements transport.Receiver. Pending envelopes are still
// delivered after Close.
func (q *Queue) Receive(ctx context.Context) (*envelope.Envelope, error) {
	select {
	case it := <-q.ch:
		return q.decode(it)
	default:
	}
	select {
	case it := <-q.ch:
		return q.decode(it)
	case <-q.done:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of pending envelopes.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting envelopes.
func (q *Queue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}

func (q *Queue) decode(it item) (*envelope.Envelope, error) {
	if it.env != nil {
		return it.env, nil
	}
	env, err := q.config.Codec.Decode(it.payload)
	return env, transport.DecodeError(err)
}

var (
	_ transport.Sender   = (*Queue)(nil)
	_ transport.Receiver = (*Queue)(nil)
)
