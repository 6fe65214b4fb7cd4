// Package policy defines the pluggable capabilities consulted while stamping
// a dispatch: retry policies, serializers and metadata providers.
//
// Each capability has a distinct method name so a value bound for one
// capability can never silently satisfy another.
package policy

import (
	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
)

// RetryPolicy returns the stamps requesting transport-level retries for a
// message. It may return zero or more stamps.
type RetryPolicy interface {
	RetryStamps(msg any, mode busroute.Mode) []envelope.Stamp
}

// Serializer returns the stamp selecting how a message is encoded when it
// leaves the process, if any.
type Serializer interface {
	SerializerStamp(msg any, mode busroute.Mode) (envelope.Stamp, bool)
}

// MetadataProvider returns a stamp carrying cross-cutting metadata, such as a
// correlation id, if any.
type MetadataProvider interface {
	MetadataStamp(msg any, mode busroute.Mode) (envelope.Stamp, bool)
}

// Capability names used in configuration errors.
const (
	CapabilityRetryPolicy      = "policy.RetryPolicy"
	CapabilitySerializer       = "policy.Serializer"
	CapabilityMetadataProvider = "policy.MetadataProvider"
)

// RetryPolicyFunc adapts a function to RetryPolicy.
type RetryPolicyFunc func(msg any, mode busroute.Mode) []envelope.Stamp

func (f RetryPolicyFunc) RetryStamps(msg any, mode busroute.Mode) []envelope.Stamp {
	return f(msg, mode)
}

// SerializerFunc adapts a function to Serializer.
type SerializerFunc func(msg any, mode busroute.Mode) (envelope.Stamp, bool)

func (f SerializerFunc) SerializerStamp(msg any, mode busroute.Mode) (envelope.Stamp, bool) {
	return f(msg, mode)
}

// MetadataProviderFunc adapts a function to MetadataProvider.
type MetadataProviderFunc func(msg any, mode busroute.Mode) (envelope.Stamp, bool)

func (f MetadataProviderFunc) MetadataStamp(msg any, mode busroute.Mode) (envelope.Stamp, bool) {
	return f(msg, mode)
}

// NoRetry never requests retries.
var NoRetry RetryPolicy = RetryPolicyFunc(func(any, busroute.Mode) []envelope.Stamp { return nil })

// NoSerializer never selects a serializer.
var NoSerializer Serializer = SerializerFunc(func(any, busroute.Mode) (envelope.Stamp, bool) { return nil, false })

// NoMetadata never adds metadata.
var NoMetadata MetadataProvider = MetadataProviderFunc(func(any, busroute.Mode) (envelope.Stamp, bool) { return nil, false })
