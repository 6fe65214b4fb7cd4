package hierarchy

import "reflect"

// Key is the fully-qualified name of a type: "<pkgpath>.<Name>".
// Pointer indirection is stripped, so T and *T share a key.
type Key string

// String returns the key as a string.
func (k Key) String() string {
	return string(k)
}

// Name returns the unqualified type name.
// Example: "github.com/acme/orders.CreateOrder" → "CreateOrder"
func (k Key) Name() string {
	s := string(k)
	// Generic instantiations contain dots inside brackets.
	end := len(s)
	for i := 0; i < len(s); i++ {
		if s[i] == '[' {
			end = i
			break
		}
	}
	for i := end - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[i+1:]
		}
	}
	return s
}

// KeyOf returns the key of t. Returns "" for a nil type.
func KeyOf(t reflect.Type) Key {
	if t == nil {
		return ""
	}
	t = deref(t)
	if t.PkgPath() == "" || t.Name() == "" {
		return Key(t.String())
	}
	return Key(t.PkgPath() + "." + t.Name())
}

// KeyFor returns the key of the type parameter T. Works for interfaces.
func KeyFor[T any]() Key {
	return KeyOf(reflect.TypeFor[T]())
}

// KeyOfValue returns the key of the dynamic type of v.
func KeyOfValue(v any) Key {
	return KeyOf(reflect.TypeOf(v))
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
