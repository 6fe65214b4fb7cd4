package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fxsml/busroute/envelope"
)

type queueKey struct{}

type deferredItem struct {
	ctx  context.Context
	env  *envelope.Envelope
	next Next
}

type queue struct {
	mu    sync.Mutex
	items []deferredItem
}

func (q *queue) push(item deferredItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

func (q *queue) pop() (deferredItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return deferredItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// DispatchAfterCurrentBus defers envelopes stamped with
// DispatchAfterCurrentBusStamp that are dispatched while another dispatch is
// in progress. They run, in order, after the outermost dispatch succeeds and
// are dropped when it fails. Errors of deferred dispatches are joined and
// returned together with the outer envelope.
//
// Use the same middleware on every bus that should share the unit of work;
// the queue travels in the context.
func DispatchAfterCurrentBus() Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
			if q, ok := ctx.Value(queueKey{}).(*queue); ok {
				if _, deferred := envelope.Last[envelope.DispatchAfterCurrentBusStamp](env); deferred {
					q.push(deferredItem{ctx: ctx, env: env, next: next})
					return env, nil
				}
				return next(ctx, env)
			}

			q := &queue{}
			out, err := next(context.WithValue(ctx, queueKey{}, q), env)
			if err != nil {
				return out, err
			}

			var errs []error
			for {
				item, ok := q.pop()
				if !ok {
					break
				}
				if _, err := item.next(item.ctx, item.env); err != nil {
					errs = append(errs, err)
				}
			}
			if len(errs) > 0 {
				return out, fmt.Errorf("memory: deferred dispatch: %w", errors.Join(errs...))
			}
			return out, nil
		}
	}
}
