package override

import (
	"errors"
	"fmt"

	"github.com/fxsml/busroute/hierarchy"
)

// ErrInvalidConfig is the base error of every *ConfigError.
var ErrInvalidConfig = errors.New("override: invalid configuration")

// ConfigError reports a wiring mistake found while building a resolver.
type ConfigError struct {
	// Key is the offending table key.
	Key hierarchy.Key
	// Capability is the required capability, if the error is a failed
	// capability check.
	Capability string
	// Reason describes the mistake.
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Capability != "" {
		return fmt.Sprintf("%v: %q: %s (requires %s)", ErrInvalidConfig, e.Key, e.Reason, e.Capability)
	}
	return fmt.Sprintf("%v: %q: %s", ErrInvalidConfig, e.Key, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
