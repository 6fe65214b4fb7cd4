// Package decider computes the stamps and the mode of a dispatch.
//
// A Chain runs stamp deciders in a fixed priority order: retry, serializer,
// metadata, transport, then dispatch-after-current-bus. Each decider is a
// pure function of the message, the resolved mode and the stamps produced so
// far, so later deciders see and may remove what earlier ones added.
package decider

import (
	"cmp"
	"slices"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
)

// Decider contributes stamps to a dispatch. Implementations return a new
// slice when they change anything and never write into stamps.
type Decider interface {
	Decide(msg any, mode busroute.Mode, stamps []envelope.Stamp) []envelope.Stamp
}

// Func adapts a function to Decider.
type Func func(msg any, mode busroute.Mode, stamps []envelope.Stamp) []envelope.Stamp

// Decide calls f.
func (f Func) Decide(msg any, mode busroute.Mode, stamps []envelope.Stamp) []envelope.Stamp {
	return f(msg, mode, stamps)
}

// Priorities of the standard deciders. Higher runs first.
const (
	PriorityRetry                   = 500
	PrioritySerializer              = 400
	PriorityMetadata                = 300
	PriorityTransport               = 200
	PriorityDispatchAfterCurrentBus = 100
)

// Entry is a decider with its priority.
type Entry struct {
	Decider  Decider
	Priority int
}

// Chain folds deciders by descending priority. Entries with equal priority
// keep the order they were given in.
type Chain struct {
	deciders []Decider
}

// NewChain creates a chain. Nil deciders are skipped.
func NewChain(entries ...Entry) *Chain {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	c := &Chain{}
	for _, e := range sorted {
		if e.Decider != nil {
			c.deciders = append(c.deciders, e.Decider)
		}
	}
	return c
}

// Decide runs every decider, feeding each one the output of the previous.
// The caller's slice is never modified.
func (c *Chain) Decide(msg any, mode busroute.Mode, stamps []envelope.Stamp) []envelope.Stamp {
	out := envelope.Clone(stamps)
	if c == nil {
		return out
	}
	for _, d := range c.deciders {
		out = d.Decide(msg, mode, out)
	}
	return out
}

// Len returns the number of deciders.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.deciders)
}

// Set holds the standard deciders. Nil and empty fields are skipped.
type Set struct {
	Retry                   []Decider
	Serializer              []Decider
	Metadata                []Decider
	Transport               Decider
	DispatchAfterCurrentBus Decider
}

// Chain returns a chain with each decider at its standard priority.
func (s Set) Chain() *Chain {
	var entries []Entry
	add := func(priority int, ds ...Decider) {
		for _, d := range ds {
			entries = append(entries, Entry{Decider: d, Priority: priority})
		}
	}
	add(PriorityRetry, s.Retry...)
	add(PrioritySerializer, s.Serializer...)
	add(PriorityMetadata, s.Metadata...)
	add(PriorityTransport, s.Transport)
	add(PriorityDispatchAfterCurrentBus, s.DispatchAfterCurrentBus)
	return NewChain(entries...)
}

// applies reports whether msg belongs to category c.
// CategoryUnknown binds a decider to every message.
func applies(c busroute.Category, msg any) bool {
	return c == busroute.CategoryUnknown || busroute.CategoryOf(msg) == c
}

var _ busroute.StampsDecider = (*Chain)(nil)
