package hierarchy

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Table is an immutable, type-keyed lookup table with memoized hierarchy
// matching. It is safe for concurrent use.
type Table[V any] struct {
	registry *Registry
	entries  map[Key]V

	// cache maps matchKey to the resolved Key ("" for no match).
	cache sync.Map
}

type matchKey struct {
	t       reflect.Type
	ignored string
}

// NewTable creates a table from entries. The map is copied.
// A nil registry resolves class chains only.
func NewTable[V any](registry *Registry, entries map[Key]V) *Table[V] {
	if registry == nil {
		registry = emptyRegistry
	}
	copied := make(map[Key]V, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Table[V]{
		registry: registry,
		entries:  copied,
	}
}

// Registry returns the interface registry used for matching.
func (t *Table[V]) Registry() *Registry {
	return t.registry
}

// Get returns the entry stored under k.
func (t *Table[V]) Get(k Key) (V, bool) {
	v, ok := t.entries[k]
	return v, ok
}

// Len returns the number of entries.
func (t *Table[V]) Len() int {
	return len(t.entries)
}

// Keys returns all keys in sorted order.
func (t *Table[V]) Keys() []Key {
	keys := make([]Key, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Match finds the most specific entry for the dynamic type of msg, skipping
// ignored keys. Returns false if nothing in the hierarchy is registered.
func (t *Table[V]) Match(msg any, ignored ...Key) (Key, V, bool) {
	return t.MatchType(reflect.TypeOf(msg), ignored...)
}

// MatchType is like Match for a type instead of a value.
func (t *Table[V]) MatchType(typ reflect.Type, ignored ...Key) (Key, V, bool) {
	var zero V
	if typ == nil {
		return "", zero, false
	}
	typ = deref(typ)

	mk := matchKey{t: typ, ignored: signature(ignored)}
	if cached, ok := t.cache.Load(mk); ok {
		k := cached.(Key)
		if k == "" {
			return "", zero, false
		}
		v, ok := t.entries[k]
		return k, v, ok
	}

	skip := make(map[Key]bool, len(ignored))
	for _, k := range ignored {
		skip[k] = true
	}

	var found Key
	t.registry.Walk(typ, func(candidate reflect.Type) bool {
		k := KeyOf(candidate)
		if skip[k] {
			return false
		}
		if _, ok := t.entries[k]; ok {
			found = k
			return true
		}
		return false
	})
	t.cache.Store(mk, found)

	if found == "" {
		return "", zero, false
	}
	return found, t.entries[found], true
}

// signature returns an order-independent representation of keys.
func signature(keys []Key) string {
	switch len(keys) {
	case 0:
		return ""
	case 1:
		return string(keys[0])
	}
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = string(k)
	}
	slices.Sort(s)
	s = slices.Compact(s)
	return strings.Join(s, "\x00")
}
