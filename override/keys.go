package override

import (
	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/hierarchy"
)

// Reserved keys. They are never matched against a type hierarchy.
const (
	KeyGlobalDefault  hierarchy.Key = "@default"
	KeyCommandDefault hierarchy.Key = "@command"
	KeyQueryDefault   hierarchy.Key = "@query"
	KeyEventDefault   hierarchy.Key = "@event"
)

// ReservedKeys lists all reserved keys.
var ReservedKeys = []hierarchy.Key{
	KeyGlobalDefault,
	KeyCommandDefault,
	KeyQueryDefault,
	KeyEventDefault,
}

// TypeDefaultKey returns the reserved key of category c, or "" for
// CategoryUnknown.
func TypeDefaultKey(c busroute.Category) hierarchy.Key {
	switch c {
	case busroute.CategoryCommand:
		return KeyCommandDefault
	case busroute.CategoryQuery:
		return KeyQueryDefault
	case busroute.CategoryEvent:
		return KeyEventDefault
	default:
		return ""
	}
}

// IsReserved reports whether k is a reserved key.
func IsReserved(k hierarchy.Key) bool {
	for _, r := range ReservedKeys {
		if k == r {
			return true
		}
	}
	return false
}
