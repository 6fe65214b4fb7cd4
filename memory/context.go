package memory

import (
	"context"

	"github.com/fxsml/busroute/envelope"
)

type envelopeKey struct{}

// EnvelopeFromContext returns the envelope being handled. It is set for the
// duration of a handler call by HandleMessages.
func EnvelopeFromContext(ctx context.Context) (*envelope.Envelope, bool) {
	env, ok := ctx.Value(envelopeKey{}).(*envelope.Envelope)
	return env, ok
}

func withEnvelope(ctx context.Context, env *envelope.Envelope) context.Context {
	return context.WithValue(ctx, envelopeKey{}, env)
}
