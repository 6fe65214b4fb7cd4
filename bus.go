package busroute

import (
	"context"

	"github.com/fxsml/busroute/envelope"
)

// Bus is the underlying message bus a router delegates to. It matches the
// message to its handlers, or hands it to a transport, and returns the
// resulting envelope. A message without handler must surface as an error
// matching ErrNoHandler.
type Bus interface {
	Dispatch(ctx context.Context, msg any, stamps ...envelope.Stamp) (*envelope.Envelope, error)
}

// BusFunc adapts a function to the Bus interface.
type BusFunc func(ctx context.Context, msg any, stamps ...envelope.Stamp) (*envelope.Envelope, error)

// Dispatch calls f.
func (f BusFunc) Dispatch(ctx context.Context, msg any, stamps ...envelope.Stamp) (*envelope.Envelope, error) {
	return f(ctx, msg, stamps...)
}

// ModeDecider resolves the dispatch mode of a message when the caller did
// not request one.
type ModeDecider interface {
	DecideMode(msg any) Mode
}

// StampsDecider computes the stamps of a dispatch from the message, the
// resolved mode and the stamps given by the caller. It must not modify the
// given slice.
type StampsDecider interface {
	Decide(msg any, mode Mode, stamps []envelope.Stamp) []envelope.Stamp
}

var _ Bus = BusFunc(nil)
