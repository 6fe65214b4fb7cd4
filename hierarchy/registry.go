package hierarchy

import (
	"fmt"
	"reflect"
)

// Registry holds the interface types that take part in resolution.
// It is immutable and safe for concurrent use.
type Registry struct {
	interfaces []reflect.Type
	extends    map[reflect.Type][]reflect.Type
}

var emptyRegistry = NewRegistry()

// Interface returns the reflect.Type of the interface type T.
// Use it to build a Registry:
//
//	reg := hierarchy.NewRegistry(
//		hierarchy.Interface[orders.Command](),
//		hierarchy.Interface[orders.Audited](),
//	)
func Interface[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// NewRegistry creates a registry of the given interface types.
// Duplicates are ignored; registration order is kept and breaks ties.
// Panics if a type is not an interface.
func NewRegistry(interfaces ...reflect.Type) *Registry {
	r := &Registry{
		extends: make(map[reflect.Type][]reflect.Type),
	}
	seen := make(map[reflect.Type]bool, len(interfaces))
	for _, t := range interfaces {
		if t == nil || t.Kind() != reflect.Interface {
			panic(fmt.Sprintf("hierarchy: %v is not an interface type", t))
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		r.interfaces = append(r.interfaces, t)
	}
	for _, t := range r.interfaces {
		var supers []reflect.Type
		for _, s := range r.interfaces {
			if s != t && t.Implements(s) {
				supers = append(supers, s)
			}
		}
		r.extends[t] = mostDerived(supers)
	}
	return r
}

// With returns a new registry holding the interfaces of r followed by more.
func (r *Registry) With(more ...reflect.Type) *Registry {
	all := make([]reflect.Type, 0, len(r.interfaces)+len(more))
	all = append(all, r.interfaces...)
	all = append(all, more...)
	return NewRegistry(all...)
}

// Interfaces returns the registered interfaces in registration order.
func (r *Registry) Interfaces() []reflect.Type {
	return append([]reflect.Type(nil), r.interfaces...)
}

// Extends returns the registered interfaces directly extended by iface.
func (r *Registry) Extends(iface reflect.Type) []reflect.Type {
	return append([]reflect.Type(nil), r.extends[iface]...)
}

// ClassChain returns t followed by its parents, nearest first.
// The parent of a struct is its first embedded struct field.
func (r *Registry) ClassChain(t reflect.Type) []reflect.Type {
	if t == nil {
		return nil
	}
	var chain []reflect.Type
	seen := make(map[reflect.Type]bool)
	for t = deref(t); t != nil && !seen[t]; t = parentOf(t) {
		seen[t] = true
		chain = append(chain, t)
	}
	return chain
}

// DirectInterfaces returns the registered interfaces declared by the class at
// chain[i]: implemented by it, not by its parent, and not implied by another
// interface it declares.
func (r *Registry) DirectInterfaces(chain []reflect.Type, i int) []reflect.Type {
	class := chain[i]
	var parent reflect.Type
	if i+1 < len(chain) {
		parent = chain[i+1]
	}
	var own []reflect.Type
	for _, iface := range r.interfaces {
		if !implements(class, iface) {
			continue
		}
		if parent != nil && implements(parent, iface) {
			continue
		}
		own = append(own, iface)
	}
	return mostDerived(own)
}

// Walk visits the candidate types of t in precedence order until visit
// returns true. Every type is visited at most once.
func (r *Registry) Walk(t reflect.Type, visit func(reflect.Type) bool) {
	chain := r.ClassChain(t)
	for _, class := range chain {
		if visit(class) {
			return
		}
	}

	visited := make(map[reflect.Type]bool)
	var walk func(iface reflect.Type) bool
	walk = func(iface reflect.Type) bool {
		if visited[iface] {
			return false
		}
		visited[iface] = true
		if visit(iface) {
			return true
		}
		for _, parent := range r.extends[iface] {
			if walk(parent) {
				return true
			}
		}
		return false
	}

	for i := range chain {
		for _, iface := range r.DirectInterfaces(chain, i) {
			if walk(iface) {
				return
			}
		}
	}
}

func parentOf(t reflect.Type) reflect.Type {
	if t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if ft := deref(f.Type); ft.Kind() == reflect.Struct {
			return ft
		}
	}
	return nil
}

// implements reports whether values of class satisfy iface through either
// the value or the pointer method set.
func implements(class, iface reflect.Type) bool {
	return reflect.PointerTo(class).Implements(iface)
}

// mostDerived drops every interface that another interface in the set extends.
// Interfaces with identical method sets are all kept.
func mostDerived(set []reflect.Type) []reflect.Type {
	var out []reflect.Type
	for _, t := range set {
		implied := false
		for _, other := range set {
			if other != t && other.Implements(t) && !t.Implements(other) {
				implied = true
				break
			}
		}
		if !implied {
			out = append(out, t)
		}
	}
	return out
}
