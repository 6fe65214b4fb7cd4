package envelope

// The helpers below never write into the slice they receive.

// Clone returns a copy of stamps. Returns nil for an empty list.
func Clone(stamps []Stamp) []Stamp {
	if len(stamps) == 0 {
		return nil
	}
	return append(make([]Stamp, 0, len(stamps)), stamps...)
}

// Append returns a new list holding stamps followed by more.
func Append(stamps []Stamp, more ...Stamp) []Stamp {
	if len(stamps)+len(more) == 0 {
		return nil
	}
	out := make([]Stamp, 0, len(stamps)+len(more))
	out = append(out, stamps...)
	return append(out, more...)
}

// Filter returns a new list of the stamps for which keep returns true.
func Filter(stamps []Stamp, keep func(Stamp) bool) []Stamp {
	var out []Stamp
	for _, s := range stamps {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether any stamp is of type T.
func Contains[T any](stamps []Stamp) bool {
	for _, s := range stamps {
		if _, ok := s.(T); ok {
			return true
		}
	}
	return false
}

// Remove returns a new list without stamps of type T.
func Remove[T any](stamps []Stamp) []Stamp {
	return Filter(stamps, func(s Stamp) bool {
		_, ok := s.(T)
		return !ok
	})
}

// LastOf returns the last stamp of type T in stamps.
func LastOf[T any](stamps []Stamp) (T, bool) {
	for i := len(stamps) - 1; i >= 0; i-- {
		if t, ok := stamps[i].(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
