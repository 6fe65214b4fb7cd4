package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
)

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// Transport is the name stamped on received envelopes.
	Transport string

	// Receiver supplies envelopes. Required.
	Receiver Receiver

	// Bus handles received envelopes. Required.
	Bus busroute.Bus

	// PollInterval is the wait after ErrEmpty. Default is 100ms.
	PollInterval time.Duration

	// Concurrency is the number of envelopes dispatched in parallel by Run.
	// Default is 1.
	Concurrency int

	// Limiter throttles receiving. Optional.
	Limiter Limiter

	// Logger for operational logging. If nil, uses slog.Default().
	Logger busroute.Logger
}

func (c WorkerConfig) parse() WorkerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Worker consumes a transport and dispatches what it receives.
type Worker struct {
	config WorkerConfig
}

// NewWorker creates a worker.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Receiver == nil {
		return nil, errors.New("transport: worker requires a receiver")
	}
	if config.Bus == nil {
		return nil, errors.New("transport: worker requires a bus")
	}
	return &Worker{config: config.parse()}, nil
}

// RunOnce receives one envelope and dispatches it.
func (w *Worker) RunOnce(ctx context.Context) (*envelope.Envelope, error) {
	env, err := w.config.Receiver.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return w.dispatch(ctx, env)
}

// Run consumes until ctx is done or the receiver is closed. Dispatch and
// decode failures are logged and do not stop the worker; other receive
// failures do.
// Run returns after all in-flight dispatches finished.
func (w *Worker) Run(ctx context.Context) error {
	w.config.Logger.Info("Worker started",
		"transport", w.config.Transport,
		"concurrency", w.config.Concurrency)
	defer w.config.Logger.Info("Worker stopped", "transport", w.config.Transport)

	size := int64(w.config.Concurrency)
	sem := semaphore.NewWeighted(size)
	// Dispatches finish on a context that is not canceled with ctx.
	dispatchCtx := context.WithoutCancel(ctx)
	defer func() {
		_ = sem.Acquire(dispatchCtx, size)
	}()

	for {
		if w.config.Limiter != nil {
			if err := w.config.Limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil
		}

		env, err := w.config.Receiver.Receive(ctx)
		if err != nil {
			sem.Release(1)
		}
		switch {
		case err == nil:
		case ctx.Err() != nil, errors.Is(err, ErrClosed):
			return nil
		case errors.Is(err, ErrDecode):
			w.config.Logger.Error("Dropped undecodable envelope",
				"transport", w.config.Transport,
				"error", err,
			)
			continue
		case errors.Is(err, ErrEmpty):
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.config.PollInterval):
			}
			continue
		default:
			return fmt.Errorf("transport: receive from %q: %w", w.config.Transport, err)
		}

		go func() {
			defer sem.Release(1)
			if _, err := w.dispatch(dispatchCtx, env); err != nil {
				w.config.Logger.Error("Failed to handle received envelope",
					"transport", w.config.Transport,
					"message", fmt.Sprintf("%T", env.Message()),
					"error", err,
				)
			}
		}()
	}
}

// dispatch re-dispatches env with a ReceivedStamp. Routing stamps from the
// sending side are dropped.
func (w *Worker) dispatch(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
	stamps := envelope.Filter(env.Stamps(), func(s envelope.Stamp) bool {
		switch s.(type) {
		case envelope.TransportNamesStamp, envelope.ReceivedStamp, envelope.SentStamp,
			envelope.BusNameStamp, envelope.DispatchAfterCurrentBusStamp:
			return false
		}
		return true
	})
	stamps = append(stamps, envelope.ReceivedStamp{Transport: w.config.Transport})
	return w.config.Bus.Dispatch(ctx, env.Message(), stamps...)
}
