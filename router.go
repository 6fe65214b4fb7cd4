package busroute

import (
	"context"
	"log/slog"
	"time"

	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/hierarchy"
)

// Config configures a CommandBus, QueryBus or EventBus.
type Config struct {
	// Sync is the bus used for synchronous dispatch. Required.
	Sync Bus
	// Async is the bus used for asynchronous dispatch. Optional; asynchronous
	// dispatch fails with ErrAsyncBusNotConfigured without it.
	Async Bus
	// Modes resolves the mode when the caller requests none.
	// If nil, every message is dispatched synchronously.
	Modes ModeDecider
	// Stamps decides the stamps of every dispatch. If nil, only the stamps
	// given by the caller are used.
	Stamps StampsDecider
	// Observer is notified around every dispatch. Optional.
	Observer Observer
	// Logger for debug logging. Defaults to slog.Default().
	Logger Logger
}

func (c Config) parse() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Observer == nil {
		c.Observer = Observers()
	}
	return c
}

// router is the pipeline shared by all buses: resolve the mode, decide the
// stamps, select the bus, delegate.
type router struct {
	category Category
	config   Config
}

func newRouter(category Category, config Config) router {
	return router{
		category: category,
		config:   config.parse(),
	}
}

func (r *router) resolveMode(msg any) Mode {
	if r.config.Modes == nil {
		return Sync
	}
	return r.config.Modes.DecideMode(msg)
}

func (r *router) dispatch(ctx context.Context, msg any, mode Mode, stamps []envelope.Stamp) (*envelope.Envelope, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}

	if r.config.Stamps != nil {
		stamps = r.config.Stamps.Decide(msg, mode, stamps)
	}

	info := DispatchInfo{
		Category: r.category,
		Key:      hierarchy.KeyOfValue(msg),
		Mode:     mode,
		Stamps:   stamps,
	}

	ctx = r.config.Observer.OnDispatch(ctx, info)
	start := time.Now()

	env, err := r.send(ctx, msg, info)
	r.config.Observer.OnComplete(ctx, info, err, time.Since(start))
	return env, err
}

func (r *router) send(ctx context.Context, msg any, info DispatchInfo) (*envelope.Envelope, error) {
	bus := r.config.Sync
	missing := ErrSyncBusNotConfigured
	if info.Mode == Async {
		bus = r.config.Async
		missing = ErrAsyncBusNotConfigured
	}
	if bus == nil {
		return nil, &RouteError{
			Category: info.Category,
			Key:      info.Key,
			Mode:     info.Mode,
			Err:      missing,
		}
	}

	r.config.Logger.Debug("Dispatching message",
		"category", info.Category.String(),
		"type", info.Key.String(),
		"mode", info.Mode.String(),
		"stamps", len(info.Stamps))

	return bus.Dispatch(ctx, msg, info.Stamps...)
}

// CommandBus routes commands to the synchronous or asynchronous bus.
type CommandBus struct {
	r router
}

// NewCommandBus creates a command bus.
func NewCommandBus(config Config) *CommandBus {
	return &CommandBus{r: newRouter(CategoryCommand, config)}
}

// Dispatch routes cmd using the mode resolved from configuration.
func (b *CommandBus) Dispatch(ctx context.Context, cmd Command, stamps ...envelope.Stamp) (*envelope.Envelope, error) {
	return b.r.dispatch(ctx, cmd, b.r.resolveMode(cmd), stamps)
}

// DispatchAs routes cmd using mode, ignoring configuration.
func (b *CommandBus) DispatchAs(ctx context.Context, cmd Command, mode Mode, stamps ...envelope.Stamp) (*envelope.Envelope, error) {
	return b.r.dispatch(ctx, cmd, mode, stamps)
}

// EventBus routes events to the synchronous or asynchronous bus.
type EventBus struct {
	r router
}

// NewEventBus creates an event bus.
func NewEventBus(config Config) *EventBus {
	return &EventBus{r: newRouter(CategoryEvent, config)}
}

// Dispatch routes evt using the mode resolved from configuration.
func (b *EventBus) Dispatch(ctx context.Context, evt Event, stamps ...envelope.Stamp) (*envelope.Envelope, error) {
	return b.r.dispatch(ctx, evt, b.r.resolveMode(evt), stamps)
}

// DispatchAs routes evt using mode, ignoring configuration.
func (b *EventBus) DispatchAs(ctx context.Context, evt Event, mode Mode, stamps ...envelope.Stamp) (*envelope.Envelope, error) {
	return b.r.dispatch(ctx, evt, mode, stamps)
}

// QueryBus dispatches queries synchronously and returns their result.
// Config.Async and Config.Modes are ignored.
type QueryBus struct {
	r router
}

// NewQueryBus creates a query bus.
func NewQueryBus(config Config) *QueryBus {
	config.Async = nil
	config.Modes = nil
	return &QueryBus{r: newRouter(CategoryQuery, config)}
}

// Dispatch dispatches q and returns the resulting envelope.
func (b *QueryBus) Dispatch(ctx context.Context, q Query, stamps ...envelope.Stamp) (*envelope.Envelope, error) {
	return b.r.dispatch(ctx, q, Sync, stamps)
}

// Ask dispatches q and returns the result of its handler.
// Returns ErrNotHandled if no handler produced a result.
func (b *QueryBus) Ask(ctx context.Context, q Query, stamps ...envelope.Stamp) (any, error) {
	env, err := b.Dispatch(ctx, q, stamps...)
	if err != nil {
		return nil, err
	}
	handled, ok := envelope.Last[envelope.HandledStamp](env)
	if !ok {
		return nil, &RouteError{
			Category: CategoryQuery,
			Key:      hierarchy.KeyOfValue(q),
			Mode:     Sync,
			Err:      ErrNotHandled,
		}
	}
	return handled.Result, nil
}

// Ask dispatches q on b and returns the result as R.
func Ask[R any](ctx context.Context, b *QueryBus, q Query, stamps ...envelope.Stamp) (R, error) {
	var zero R
	result, err := b.Ask(ctx, q, stamps...)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	r, ok := result.(R)
	if !ok {
		return zero, &RouteError{
			Category: CategoryQuery,
			Key:      hierarchy.KeyOfValue(q),
			Mode:     Sync,
			Err:      ErrUnexpectedResult,
		}
	}
	return r, nil
}
