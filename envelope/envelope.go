// Package envelope defines dispatch envelopes and the stamps that annotate them.
package envelope

// Stamp is an immutable annotation attached to a dispatch.
// Stamps of different kinds may coexist on one envelope; uniqueness per kind
// is the responsibility of whoever adds them.
type Stamp interface {
	// StampName returns a short, stable name for logging and transport headers.
	StampName() string
}

// Envelope is a message plus its accumulated stamps. Envelopes are never
// modified; With and Without return new envelopes.
type Envelope struct {
	message any
	stamps  []Stamp
}

// New wraps msg with stamps. If msg is already an *Envelope, its stamps are
// kept and the new ones appended.
func New(msg any, stamps ...Stamp) *Envelope {
	if e, ok := msg.(*Envelope); ok {
		return e.With(stamps...)
	}
	return &Envelope{
		message: msg,
		stamps:  Clone(stamps),
	}
}

// Message returns the wrapped message.
func (e *Envelope) Message() any {
	return e.message
}

// Stamps returns a copy of all stamps in the order they were added.
func (e *Envelope) Stamps() []Stamp {
	return Clone(e.stamps)
}

// With returns a new envelope with stamps appended.
func (e *Envelope) With(stamps ...Stamp) *Envelope {
	return &Envelope{
		message: e.message,
		stamps:  Append(e.stamps, stamps...),
	}
}

// Without returns a new envelope without the stamps matched by drop.
func (e *Envelope) Without(drop func(Stamp) bool) *Envelope {
	return &Envelope{
		message: e.message,
		stamps:  Filter(e.stamps, func(s Stamp) bool { return !drop(s) }),
	}
}

// Last returns the last stamp of type T on e.
func Last[T Stamp](e *Envelope) (T, bool) {
	if e == nil {
		var zero T
		return zero, false
	}
	return LastOf[T](e.stamps)
}

// All returns every stamp of type T on e in order.
func All[T Stamp](e *Envelope) []T {
	if e == nil {
		return nil
	}
	var out []T
	for _, s := range e.stamps {
		if t, ok := s.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
