package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/hierarchy"
	"github.com/fxsml/busroute/transport"
)

// HandleMessages calls the handlers registered for the message. Each result
// is recorded as a HandledStamp. Without a handler it fails with
// *NoHandlerError.
func HandleMessages(handlers *Handlers) Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
			key, regs := handlers.Lookup(env.Message())
			if len(regs) == 0 {
				return nil, &NoHandlerError{Key: hierarchy.KeyOfValue(env.Message())}
			}

			for _, r := range regs {
				hctx := withEnvelope(ctx, env)
				var (
					result any
					err    error
				)
				if eh, ok := r.Handler.(EnvelopeHandler); ok {
					result, err = eh.HandleEnvelope(hctx, env)
				} else {
					result, err = r.Handler.Handle(hctx, env.Message())
				}
				if err != nil {
					return nil, fmt.Errorf("memory: handler %s for %s: %w", r.Name, key, err)
				}
				env = env.With(envelope.HandledStamp{Result: result, Handler: r.Name})
			}
			return next(ctx, env)
		}
	}
}

// AllowNoHandlers turns a missing handler into success for messages
// accepted by allow. The envelope is returned as it entered the middleware.
func AllowNoHandlers(allow func(msg any) bool) Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
			out, err := next(ctx, env)
			if err != nil && errors.Is(err, busroute.ErrNoHandler) && allow(env.Message()) {
				return env, nil
			}
			return out, err
		}
	}
}

// AllowNoEventHandlers allows events without handlers.
func AllowNoEventHandlers() Middleware {
	return AllowNoHandlers(func(msg any) bool {
		return busroute.CategoryOf(msg) == busroute.CategoryEvent
	})
}

// SendToTransport sends envelopes stamped with TransportNamesStamp to each
// named transport instead of handling them. Each send adds a SentStamp.
// Received envelopes and envelopes without transport names are passed on.
func SendToTransport(senders transport.Senders) Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
			if _, ok := envelope.Last[envelope.ReceivedStamp](env); ok {
				return next(ctx, env)
			}
			names, ok := envelope.Last[envelope.TransportNamesStamp](env)
			if !ok || len(names.Names) == 0 {
				return next(ctx, env)
			}

			for _, name := range names.Names {
				sender, err := senders.Sender(name)
				if err != nil {
					return nil, err
				}
				if err := sender.Send(ctx, env); err != nil {
					return nil, fmt.Errorf("memory: send to %q: %w", name, err)
				}
				env = env.With(envelope.SentStamp{Transport: name})
			}
			return env, nil
		}
	}
}

// Logging logs every dispatch. If logger is nil, uses slog.Default().
func Logging(logger busroute.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Next) Next {
		return func(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
			start := time.Now()
			key := hierarchy.KeyOfValue(env.Message())
			bus, _ := envelope.Last[envelope.BusNameStamp](env)

			out, err := next(ctx, env)
			if err != nil {
				logger.Error("Dispatch failed",
					"bus", bus.Name,
					"message", key,
					"duration", time.Since(start),
					"error", err,
				)
				return out, err
			}
			logger.Debug("Dispatched message",
				"bus", bus.Name,
				"message", key,
				"duration", time.Since(start),
			)
			return out, nil
		}
	}
}

// RecoveryError wraps a panic value with the stack trace.
type RecoveryError struct {
	// PanicValue is the original value that was passed to panic().
	PanicValue any
	// StackTrace contains the full stack trace at the point of panic.
	StackTrace string
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.PanicValue)
}

// Recover converts panics in the rest of the chain into *RecoveryError.
func Recover() Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, env *envelope.Envelope) (out *envelope.Envelope, err error) {
			defer func() {
				if r := recover(); r != nil {
					out = nil
					err = &RecoveryError{
						PanicValue: r,
						StackTrace: string(debug.Stack()),
					}
				}
			}()
			return next(ctx, env)
		}
	}
}

// Correlation propagates the correlation id of the envelope being handled
// to envelopes dispatched from its handler. An explicit CorrelationStamp on
// the dispatched envelope is kept; a Generated one is replaced by the
// parent's id.
func Correlation() Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
			own, hasOwn := envelope.Last[envelope.CorrelationStamp](env)
			if hasOwn && !own.Generated {
				return next(ctx, env)
			}
			parent, ok := EnvelopeFromContext(ctx)
			if !ok {
				return next(ctx, env)
			}
			c, ok := envelope.Last[envelope.CorrelationStamp](parent)
			if !ok || c.CorrelationID == "" {
				return next(ctx, env)
			}
			causation := own.CausationID
			if causation == "" {
				causation = c.CausationID
			}
			env = env.Without(func(s envelope.Stamp) bool {
				_, ok := s.(envelope.CorrelationStamp)
				return ok
			}).With(envelope.CorrelationStamp{
				CorrelationID: c.CorrelationID,
				CausationID:   causation,
			})
			return next(ctx, env)
		}
	}
}
