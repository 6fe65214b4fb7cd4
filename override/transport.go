package override

import (
	"fmt"

	"github.com/fxsml/busroute/hierarchy"
)

// TransportResolver resolves the transport names of a message.
type TransportResolver struct {
	r *Resolver[[]string]
}

// NewTransportResolver creates a transport resolver. Every value must be a
// transport name or a list of names; lists are deduplicated keeping the first
// occurrence. entries must hold a KeyGlobalDefault entry, which may be empty.
func NewTransportResolver(registry *hierarchy.Registry, entries map[hierarchy.Key]any) (*TransportResolver, error) {
	normalized := make(map[hierarchy.Key][]string, len(entries))
	for k, v := range entries {
		names, err := NormalizeTransportNames(k, v)
		if err != nil {
			return nil, err
		}
		normalized[k] = names
	}
	r, err := NewResolver(hierarchy.NewTable(registry, normalized))
	if err != nil {
		return nil, err
	}
	return &TransportResolver{r: r}, nil
}

// Resolve returns the transport names for msg. The slice is a copy.
func (t *TransportResolver) Resolve(msg any) []string {
	return append([]string(nil), t.r.Resolve(msg)...)
}

// NormalizeTransportNames converts v to a deduplicated list of names.
// Accepts string, []string and []any holding strings.
func NormalizeTransportNames(key hierarchy.Key, v any) ([]string, error) {
	var raw []string
	switch val := v.(type) {
	case nil:
	case string:
		raw = []string{val}
	case []string:
		raw = val
	case []any:
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, &ConfigError{
					Key:    key,
					Reason: fmt.Sprintf("transport name at index %d is %T, not a string", i, item),
				}
			}
			raw = append(raw, s)
		}
	default:
		return nil, &ConfigError{
			Key:    key,
			Reason: fmt.Sprintf("transport value is %T, want a string or a list of strings", v),
		}
	}

	seen := make(map[string]bool, len(raw))
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		if name == "" {
			return nil, &ConfigError{Key: key, Reason: "empty transport name"}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}
