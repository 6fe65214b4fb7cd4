package busroute

import (
	"context"
	"time"

	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/hierarchy"
)

// DispatchInfo describes a routed dispatch.
type DispatchInfo struct {
	Category Category
	Key      hierarchy.Key
	Mode     Mode
	Stamps   []envelope.Stamp
}

// Observer is notified around every routed dispatch.
type Observer interface {
	// OnDispatch is called after the stamps were decided and before the bus
	// is called. The returned context is passed to the bus and OnComplete.
	OnDispatch(ctx context.Context, info DispatchInfo) context.Context

	// OnComplete is called when the dispatch returned. err is nil on success.
	OnComplete(ctx context.Context, info DispatchInfo, err error, duration time.Duration)
}

// Observers combines observers. OnDispatch runs in order, OnComplete in
// reverse order.
func Observers(observers ...Observer) Observer {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) OnDispatch(ctx context.Context, info DispatchInfo) context.Context {
	for _, o := range m {
		ctx = o.OnDispatch(ctx, info)
	}
	return ctx
}

func (m multiObserver) OnComplete(ctx context.Context, info DispatchInfo, err error, d time.Duration) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].OnComplete(ctx, info, err, d)
	}
}
