package override

import (
	"github.com/fxsml/busroute/hierarchy"
	"github.com/fxsml/busroute/policy"
)

// RetryResolver resolves the retry policy of a message: the most specific
// override, else the fallback policy.
type RetryResolver struct {
	table    *hierarchy.Table[policy.RetryPolicy]
	fallback policy.RetryPolicy
}

// NewRetryResolver creates a retry resolver. fallback is required.
func NewRetryResolver(table *hierarchy.Table[policy.RetryPolicy], fallback policy.RetryPolicy) (*RetryResolver, error) {
	if fallback == nil {
		return nil, &ConfigError{
			Key:        KeyGlobalDefault,
			Capability: policy.CapabilityRetryPolicy,
			Reason:     "no default retry policy configured",
		}
	}
	if table == nil {
		table = hierarchy.NewTable[policy.RetryPolicy](nil, nil)
	}
	return &RetryResolver{table: table, fallback: fallback}, nil
}

// Resolve returns the retry policy for msg.
func (r *RetryResolver) Resolve(msg any) policy.RetryPolicy {
	if _, p, ok := r.table.Match(msg, ReservedKeys...); ok {
		return p
	}
	return r.fallback
}
