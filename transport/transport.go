// Package transport defines how envelopes leave the process and come back.
//
// A Sender delivers an envelope to a broker and a Receiver reads envelopes
// from one. Broker adapters live in the sub-packages. A Worker reads from a
// Receiver and dispatches each envelope back onto a bus with a ReceivedStamp,
// so the bus handles it locally instead of sending it again.
package transport

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fxsml/busroute/envelope"
)

var (
	// ErrUnknownTransport is returned when no sender has the requested name.
	ErrUnknownTransport = errors.New("transport: unknown transport")

	// ErrClosed is returned by receivers that will not deliver more envelopes.
	ErrClosed = errors.New("transport: closed")

	// ErrEmpty is returned by non-blocking receivers when nothing is pending.
	ErrEmpty = errors.New("transport: no envelope available")

	// ErrDecode is returned by receivers that consumed a payload they could
	// not decode. The payload is gone and receiving may continue.
	ErrDecode = errors.New("transport: decode failed")
)

// DecodeError marks a codec failure with ErrDecode. It returns nil for nil.
func DecodeError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDecode, err)
}

// Sender delivers envelopes to a transport.
type Sender interface {
	Send(ctx context.Context, env *envelope.Envelope) error
}

// Receiver reads envelopes from a transport. Receive blocks until an
// envelope is available or ctx is done.
type Receiver interface {
	Receive(ctx context.Context) (*envelope.Envelope, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, env *envelope.Envelope) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, env *envelope.Envelope) error {
	return f(ctx, env)
}

// Senders locates senders by transport name.
type Senders interface {
	Sender(name string) (Sender, error)
}

// Locator is a Senders backed by a map.
type Locator map[string]Sender

// Sender returns the sender registered as name.
func (l Locator) Sender(name string) (Sender, error) {
	if s, ok := l[name]; ok && s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, name)
}

// Names returns the registered transport names, sorted.
func (l Locator) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var (
	_ Senders = Locator(nil)
	_ Sender  = SenderFunc(nil)
)
