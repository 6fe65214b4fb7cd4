package decider

import (
	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/override"
)

// ModeDecider resolves the dispatch mode of commands and events from an
// override table. Queries and untagged messages are always Sync.
type ModeDecider struct {
	resolver *override.Resolver[busroute.Mode]
}

// NewModeDecider creates a mode decider. A nil resolver makes every message
// Sync.
func NewModeDecider(resolver *override.Resolver[busroute.Mode]) *ModeDecider {
	return &ModeDecider{resolver: resolver}
}

// DecideMode implements busroute.ModeDecider.
func (d *ModeDecider) DecideMode(msg any) busroute.Mode {
	switch busroute.CategoryOf(msg) {
	case busroute.CategoryCommand, busroute.CategoryEvent:
		if d.resolver != nil {
			return d.resolver.Resolve(msg)
		}
	}
	return busroute.Sync
}

var _ busroute.ModeDecider = (*ModeDecider)(nil)
