package decider

import (
	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/override"
)

// TransportDecider appends a TransportNamesStamp from the resolver of the
// message category and mode. Queries use one resolver for both modes.
//
// It does nothing when the stamps already select a transport, that is when
// any stamp implements envelope.TransportSelector.
type TransportDecider struct {
	CommandSync  *override.TransportResolver
	CommandAsync *override.TransportResolver
	EventSync    *override.TransportResolver
	EventAsync   *override.TransportResolver
	Query        *override.TransportResolver
}

// Decide implements Decider.
func (d *TransportDecider) Decide(msg any, mode busroute.Mode, stamps []envelope.Stamp) []envelope.Stamp {
	if envelope.Contains[envelope.TransportSelector](stamps) {
		return stamps
	}
	r := d.resolver(msg, mode)
	if r == nil {
		return stamps
	}
	names := r.Resolve(msg)
	if len(names) == 0 {
		return stamps
	}
	return envelope.Append(stamps, envelope.NewTransportNamesStamp(names...))
}

func (d *TransportDecider) resolver(msg any, mode busroute.Mode) *override.TransportResolver {
	switch busroute.CategoryOf(msg) {
	case busroute.CategoryCommand:
		if mode == busroute.Async {
			return d.CommandAsync
		}
		return d.CommandSync
	case busroute.CategoryEvent:
		if mode == busroute.Async {
			return d.EventAsync
		}
		return d.EventSync
	case busroute.CategoryQuery:
		return d.Query
	default:
		return nil
	}
}

// DispatchAfterCurrentBusDecider resets the deferred-dispatch marker. It
// removes any DispatchAfterCurrentBusStamp and, in Async mode only, adds one
// when the resolver of the message category returns true.
type DispatchAfterCurrentBusDecider struct {
	Commands *override.Resolver[bool]
	Events   *override.Resolver[bool]
}

// Decide implements Decider.
func (d *DispatchAfterCurrentBusDecider) Decide(msg any, mode busroute.Mode, stamps []envelope.Stamp) []envelope.Stamp {
	out := envelope.Remove[envelope.DispatchAfterCurrentBusStamp](stamps)
	if mode != busroute.Async {
		return out
	}
	var r *override.Resolver[bool]
	switch busroute.CategoryOf(msg) {
	case busroute.CategoryCommand:
		r = d.Commands
	case busroute.CategoryEvent:
		r = d.Events
	}
	if r != nil && r.Resolve(msg) {
		out = append(out, envelope.DispatchAfterCurrentBusStamp{})
	}
	return out
}

var (
	_ Decider = (*TransportDecider)(nil)
	_ Decider = (*DispatchAfterCurrentBusDecider)(nil)
)
