package busroute

import (
	"errors"
	"fmt"

	"github.com/fxsml/busroute/hierarchy"
)

var (
	// ErrNoHandler is returned by a bus when no handler is registered for a message.
	ErrNoHandler = errors.New("busroute: no handler for message")

	// ErrAsyncBusNotConfigured is returned when an asynchronous dispatch is
	// requested but the router has no asynchronous bus.
	ErrAsyncBusNotConfigured = errors.New("busroute: asynchronous bus not configured")

	// ErrSyncBusNotConfigured is returned when a synchronous dispatch is
	// requested but the router has no synchronous bus.
	ErrSyncBusNotConfigured = errors.New("busroute: synchronous bus not configured")

	// ErrNotHandled is returned by QueryBus.Ask when the envelope carries no
	// HandledStamp.
	ErrNotHandled = errors.New("busroute: message was not handled by any handler")

	// ErrUnexpectedResult is returned by Ask when the handler result has
	// another type than requested.
	ErrUnexpectedResult = errors.New("busroute: unexpected result type")

	// ErrNilMessage is returned when dispatching a nil message.
	ErrNilMessage = errors.New("busroute: nil message")
)

// RouteError describes a dispatch that could not be routed.
// Use errors.Is with the sentinel errors above to match the cause.
type RouteError struct {
	Category Category
	Key      hierarchy.Key
	Mode     Mode
	Err      error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("%v for %s %s (%s)", e.Err, e.Category, e.Key, e.Mode)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}
