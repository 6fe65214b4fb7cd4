// Package hierarchy resolves the most specific configured entry for a message
// by walking its type hierarchy.
//
// Go has no class inheritance, so the hierarchy is modeled after the two
// relationships Go does have:
//
//   - Class chain: the concrete type of the message, then its parent, which is
//     the first embedded struct field. The walk repeats until a type embeds no
//     struct.
//   - Interfaces: the interface types listed in a [Registry]. A class declares
//     an interface directly when it implements it and its parent does not. An
//     interface extends every registered interface whose method set it contains.
//
// # Precedence
//
// [Table.Match] tries every class of the chain first, nearest first. Only then
// are interfaces considered: for each class in chain order, every directly
// declared interface is walked depth first through its extended interfaces.
// The first key present in the table and not ignored wins. An exact class match
// therefore always beats an interface match, and a derived interface beats the
// interfaces it extends.
//
// # Caching
//
// Each [Table] memoizes resolved keys per concrete type and ignored-key set.
// Tables are immutable after [NewTable], so cached entries never go stale. The
// cache is owned by the table and released together with it.
package hierarchy
