// Package metadata provides metadata providers that stamp a dispatch with
// correlation information.
package metadata

import (
	"github.com/google/uuid"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/policy"
)

// Correlated is implemented by messages that carry their own correlation id.
type Correlated interface {
	CorrelationID() string
}

// Caused is implemented by messages that know the id of the message that
// caused them.
type Caused interface {
	CausationID() string
}

// Correlation stamps every message with an envelope.CorrelationStamp.
// The id is taken from the message when it implements Correlated, otherwise
// a new one is generated and the stamp is marked Generated.
type Correlation struct {
	// NewID generates correlation ids. Defaults to uuid.NewString.
	NewID func() string
}

// MetadataStamp implements policy.MetadataProvider.
func (c Correlation) MetadataStamp(msg any, _ busroute.Mode) (envelope.Stamp, bool) {
	var stamp envelope.CorrelationStamp
	if m, ok := msg.(Correlated); ok {
		stamp.CorrelationID = m.CorrelationID()
	}
	if m, ok := msg.(Caused); ok {
		stamp.CausationID = m.CausationID()
	}
	if stamp.CorrelationID == "" {
		newID := c.NewID
		if newID == nil {
			newID = uuid.NewString
		}
		stamp.CorrelationID = newID()
		stamp.Generated = true
	}
	return stamp, true
}

// CorrelationID returns the correlation id stamped on env.
func CorrelationID(env *envelope.Envelope) (string, bool) {
	s, ok := envelope.Last[envelope.CorrelationStamp](env)
	if !ok || s.CorrelationID == "" {
		return "", false
	}
	return s.CorrelationID, true
}

var _ policy.MetadataProvider = Correlation{}
