package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/hierarchy"
	"github.com/fxsml/busroute/registry"
)

// ErrUnexpectedMessage is returned by typed handlers given a message they
// cannot convert.
var ErrUnexpectedMessage = errors.New("memory: unexpected message type")

// NoHandlerError is returned when no handler is registered for a message.
// It matches busroute.ErrNoHandler.
type NoHandlerError struct {
	Key hierarchy.Key
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("memory: no handler for message %q", e.Key)
}

func (e *NoHandlerError) Unwrap() error {
	return busroute.ErrNoHandler
}

// Handler handles a message and returns its result, if any.
type Handler interface {
	Handle(ctx context.Context, msg any) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg any) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg any) (any, error) {
	return f(ctx, msg)
}

// EnvelopeHandler is implemented by handlers that need the stamps of the
// dispatch. HandleMessages calls HandleEnvelope instead of Handle.
type EnvelopeHandler interface {
	Handler
	HandleEnvelope(ctx context.Context, env *envelope.Envelope) (any, error)
}

// Registration binds a handler to a message type or interface.
type Registration struct {
	Message   hierarchy.Key
	Category  busroute.Category
	Name      string
	ServiceID string
	Handler   Handler
}

// Handlers holds handler registrations. Lookup returns the handlers of the
// most specific matching class or interface, in registration order.
type Handlers struct {
	registry *hierarchy.Registry

	mu    sync.RWMutex
	regs  []Registration
	table *hierarchy.Table[[]Registration]
}

// NewHandlers creates an empty set. registry lists the interfaces handlers
// may be registered for; it may be nil.
func NewHandlers(registry *hierarchy.Registry) *Handlers {
	return &Handlers{
		registry: registry,
		table:    hierarchy.NewTable[[]Registration](registry, nil),
	}
}

// Add registers r.
func (h *Handlers) Add(r Registration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.regs = append(h.regs, r)
	byKey := make(map[hierarchy.Key][]Registration)
	for _, reg := range h.regs {
		byKey[reg.Message] = append(byKey[reg.Message], reg)
	}
	h.table = hierarchy.NewTable(h.registry, byKey)
}

// Handle registers fn for messages of type T. T may be a struct, in which
// case types embedding T are handled too, or a registered interface.
func Handle[T any](h *Handlers, name string, fn func(ctx context.Context, msg T) (any, error)) {
	t := reflect.TypeFor[T]()
	h.Add(Registration{
		Message:  hierarchy.KeyOf(t),
		Category: categoryOfType(t),
		Name:     name,
		Handler: HandlerFunc(func(ctx context.Context, msg any) (any, error) {
			m, ok := as[T](msg)
			if !ok {
				return nil, fmt.Errorf("%w: %s cannot handle %T", ErrUnexpectedMessage, name, msg)
			}
			return fn(ctx, m)
		}),
	})
}

// Lookup returns the key matched for msg and its handlers.
func (h *Handlers) Lookup(msg any) (hierarchy.Key, []Registration) {
	h.mu.RLock()
	table := h.table
	h.mu.RUnlock()

	k, regs, _ := table.Match(msg)
	return k, regs
}

// Descriptors describes every registration as served by bus.
func (h *Handlers) Descriptors(bus string) []registry.Descriptor {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]registry.Descriptor, 0, len(h.regs))
	for _, r := range h.regs {
		out = append(out, registry.Descriptor{
			Category:  r.Category,
			Message:   r.Message,
			Handler:   r.Name,
			ServiceID: r.ServiceID,
			Bus:       bus,
		})
	}
	return out
}

var (
	commandType = reflect.TypeFor[busroute.Command]()
	queryType   = reflect.TypeFor[busroute.Query]()
	eventType   = reflect.TypeFor[busroute.Event]()
)

func categoryOfType(t reflect.Type) busroute.Category {
	switch {
	case t.Implements(commandType):
		return busroute.CategoryCommand
	case t.Implements(queryType):
		return busroute.CategoryQuery
	case t.Implements(eventType):
		return busroute.CategoryEvent
	default:
		return busroute.CategoryUnknown
	}
}

// as converts msg to T. Besides a plain assertion it dereferences pointers
// and follows the parent chain of embedded structs, so a handler for a
// parent type receives the embedded parent value. Parents embedded through
// unexported fields cannot be extracted.
func as[T any](msg any) (T, bool) {
	if m, ok := msg.(T); ok {
		return m, true
	}
	var zero T
	target := reflect.TypeFor[T]()
	v := reflect.ValueOf(msg)
	for v.IsValid() {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return zero, false
			}
			v = v.Elem()
		}
		if v.Type() == target && v.CanInterface() {
			return v.Interface().(T), true
		}
		v = parentValue(v)
	}
	return zero, false
}

// parentValue returns the first embedded struct field of v, or the zero Value.
func parentValue(v reflect.Value) reflect.Value {
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Type().Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}
