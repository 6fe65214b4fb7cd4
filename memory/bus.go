// Package memory provides an in-process bus built from middleware.
//
// A Bus wraps every dispatched message in an envelope and passes it through
// its middleware chain. HandleMessages is usually last and calls the handler
// registered for the message; the other middleware add deferred dispatch,
// sending to transports, logging and recovery around it.
package memory

import (
	"context"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
)

// Next handles an envelope and returns the resulting envelope.
type Next func(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error)

// Middleware wraps a Next with additional behavior.
type Middleware func(next Next) Next

// Config configures a Bus.
type Config struct {
	// Name is stamped on every envelope as BusNameStamp.
	Name string

	// Middleware is applied in order; the first entry runs outermost.
	Middleware []Middleware
}

// Bus dispatches messages through a middleware chain.
type Bus struct {
	name string
	next Next
}

// New creates a bus. Without middleware, Dispatch returns the envelope
// unchanged.
func New(config Config) *Bus {
	next := Next(func(_ context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
		return env, nil
	})
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		if config.Middleware[i] != nil {
			next = config.Middleware[i](next)
		}
	}
	return &Bus{name: config.Name, next: next}
}

// Name returns the bus name.
func (b *Bus) Name() string {
	return b.name
}

// Dispatch implements busroute.Bus. If msg is an *envelope.Envelope its
// stamps are kept.
func (b *Bus) Dispatch(ctx context.Context, msg any, stamps ...envelope.Stamp) (*envelope.Envelope, error) {
	if msg == nil {
		return nil, busroute.ErrNilMessage
	}
	env := envelope.New(msg, stamps...)
	if _, ok := envelope.Last[envelope.BusNameStamp](env); !ok && b.name != "" {
		env = env.With(envelope.BusNameStamp{Name: b.name})
	}
	return b.next(ctx, env)
}

var _ busroute.Bus = (*Bus)(nil)
