package override

import (
	"fmt"
	"slices"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/hierarchy"
)

// Resolver resolves a value of type V for a message.
type Resolver[V any] struct {
	table *hierarchy.Table[V]
}

// NewResolver creates a resolver over table. The table must hold a
// KeyGlobalDefault entry.
func NewResolver[V any](table *hierarchy.Table[V]) (*Resolver[V], error) {
	if _, ok := table.Get(KeyGlobalDefault); !ok {
		return nil, &ConfigError{Key: KeyGlobalDefault, Reason: "no global default configured"}
	}
	return &Resolver[V]{table: table}, nil
}

// Table returns the underlying table.
func (r *Resolver[V]) Table() *hierarchy.Table[V] {
	return r.table
}

// Resolve returns the value for msg.
func (r *Resolver[V]) Resolve(msg any) V {
	_, v := r.ResolveKey(msg)
	return v
}

// ResolveKey returns the value for msg and the key it was found under.
func (r *Resolver[V]) ResolveKey(msg any) (hierarchy.Key, V) {
	if k, v, ok := r.table.Match(msg, ReservedKeys...); ok {
		return k, v
	}
	if k := TypeDefaultKey(busroute.CategoryOf(msg)); k != "" {
		if v, ok := r.table.Get(k); ok {
			return k, v
		}
	}
	v, _ := r.table.Get(KeyGlobalDefault)
	return KeyGlobalDefault, v
}

// Bind checks that every configured service provides capability V.
// It is the single place where configuration-injected values are type
// checked; everything downstream is statically typed.
func Bind[V any](entries map[hierarchy.Key]any, capability string) (map[hierarchy.Key]V, error) {
	keys := make([]hierarchy.Key, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make(map[hierarchy.Key]V, len(entries))
	for _, k := range keys {
		v, ok := entries[k].(V)
		if !ok {
			return nil, &ConfigError{
				Key:        k,
				Capability: capability,
				Reason:     fmt.Sprintf("service of type %T does not provide the capability", entries[k]),
			}
		}
		out[k] = v
	}
	return out, nil
}
