package decider

import (
	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/override"
	"github.com/fxsml/busroute/policy"
)

// RetryPolicyDecider appends every stamp of the retry policy resolved for
// messages of category For.
type RetryPolicyDecider struct {
	For      busroute.Category
	Resolver *override.RetryResolver
}

// Decide implements Decider.
func (d *RetryPolicyDecider) Decide(msg any, mode busroute.Mode, stamps []envelope.Stamp) []envelope.Stamp {
	if d.Resolver == nil || !applies(d.For, msg) {
		return stamps
	}
	more := d.Resolver.Resolve(msg).RetryStamps(msg, mode)
	if len(more) == 0 {
		return stamps
	}
	return envelope.Append(stamps, more...)
}

// SerializerDecider appends the stamp of the serializer resolved for
// messages of category For, if it provides one.
type SerializerDecider struct {
	For      busroute.Category
	Resolver *override.Resolver[policy.Serializer]
}

// Decide implements Decider.
func (d *SerializerDecider) Decide(msg any, mode busroute.Mode, stamps []envelope.Stamp) []envelope.Stamp {
	if d.Resolver == nil || !applies(d.For, msg) {
		return stamps
	}
	s, ok := d.Resolver.Resolve(msg).SerializerStamp(msg, mode)
	return appendOptional(stamps, s, ok)
}

// MetadataDecider appends the stamp of the metadata provider resolved for
// messages of category For, if it provides one.
type MetadataDecider struct {
	For      busroute.Category
	Resolver *override.Resolver[policy.MetadataProvider]
}

// Decide implements Decider.
func (d *MetadataDecider) Decide(msg any, mode busroute.Mode, stamps []envelope.Stamp) []envelope.Stamp {
	if d.Resolver == nil || !applies(d.For, msg) {
		return stamps
	}
	s, ok := d.Resolver.Resolve(msg).MetadataStamp(msg, mode)
	return appendOptional(stamps, s, ok)
}

func appendOptional(stamps []envelope.Stamp, s envelope.Stamp, ok bool) []envelope.Stamp {
	if !ok || s == nil {
		return stamps
	}
	return envelope.Append(stamps, s)
}

var (
	_ Decider = (*RetryPolicyDecider)(nil)
	_ Decider = (*SerializerDecider)(nil)
	_ Decider = (*MetadataDecider)(nil)
)
