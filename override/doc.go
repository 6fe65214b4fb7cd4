// Package override resolves per-message configuration with tiered fallback.
//
// Every resolver wraps an immutable hierarchy.Table. Resolution tries, in
// order:
//
//  1. the most specific entry for the message's type hierarchy, ignoring the
//     reserved keys;
//  2. the default of the message's category (KeyCommandDefault,
//     KeyQueryDefault, KeyEventDefault);
//  3. the global default (KeyGlobalDefault), which must exist.
//
// RetryResolver has only two tiers: the hierarchy match and an injected
// fallback policy.
//
// Configuration mistakes are reported as *ConfigError when a resolver is
// built, never while resolving.
package override
