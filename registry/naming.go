package registry

import (
	"strings"
	"unicode"

	"github.com/fxsml/busroute/hierarchy"
)

// NamingStrategy derives display names from message type keys.
type NamingStrategy interface {
	Name(k hierarchy.Key) string
}

// NamingFunc adapts a function to NamingStrategy.
type NamingFunc func(k hierarchy.Key) string

// Name calls f.
func (f NamingFunc) Name(k hierarchy.Key) string {
	return f(k)
}

// FullNaming returns the key unchanged.
// Example: "github.com/acme/orders.OrderCreated"
var FullNaming NamingStrategy = NamingFunc(func(k hierarchy.Key) string {
	return string(k)
})

// ShortNaming returns the unqualified type name.
// Example: OrderCreated → "OrderCreated"
var ShortNaming NamingStrategy = NamingFunc(func(k hierarchy.Key) string {
	return k.Name()
})

// DotNaming converts PascalCase to dot-separated lowercase.
// Example: OrderCreated → "order.created"
var DotNaming NamingStrategy = NamingFunc(func(k hierarchy.Key) string {
	return splitPascalCase(k.Name(), ".")
})

// KebabNaming converts PascalCase to dash-separated lowercase.
// Example: OrderCreated → "order-created"
var KebabNaming NamingStrategy = NamingFunc(func(k hierarchy.Key) string {
	return splitPascalCase(k.Name(), "-")
})

// SnakeNaming converts PascalCase to underscore-separated lowercase.
// Example: OrderCreated → "order_created"
var SnakeNaming NamingStrategy = NamingFunc(func(k hierarchy.Key) string {
	return splitPascalCase(k.Name(), "_")
})

// Naming returns the strategy with the given name: "full", "short", "dot",
// "kebab" or "snake".
func Naming(name string) (NamingStrategy, bool) {
	switch name {
	case "full":
		return FullNaming, true
	case "short", "":
		return ShortNaming, true
	case "dot":
		return DotNaming, true
	case "kebab":
		return KebabNaming, true
	case "snake":
		return SnakeNaming, true
	default:
		return nil, false
	}
}

// splitPascalCase splits a PascalCase string into lowercase words joined by sep.
// Runs of capitals are kept together, so HTTPRequest becomes "http" and "request".
func splitPascalCase(s string, sep string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var words []string
	var current strings.Builder

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevUpper := unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !prevUpper || nextLower {
				words = append(words, strings.ToLower(current.String()))
				current.Reset()
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		words = append(words, strings.ToLower(current.String()))
	}

	return strings.Join(words, sep)
}
