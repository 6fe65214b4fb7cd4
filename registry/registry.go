// Package registry is a read-only view of which handler serves which message
// on which bus, for tooling and debugging.
package registry

import (
	"slices"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/hierarchy"
)

// Descriptor describes one handler registration.
type Descriptor struct {
	Category  busroute.Category
	Message   hierarchy.Key
	Handler   string
	ServiceID string
	Bus       string
}

// Row is a Descriptor rendered for display.
type Row struct {
	Type      string
	Message   string
	Handler   string
	ServiceID string
	Bus       string
}

// Registry holds handler descriptors.
type Registry struct {
	descs []Descriptor
	table *hierarchy.Table[[]int]
}

// New creates a registry. registry determines how ForMessage matches
// messages against interface registrations; it may be nil.
func New(registry *hierarchy.Registry, descs ...Descriptor) *Registry {
	byKey := make(map[hierarchy.Key][]int)
	for i, d := range descs {
		byKey[d.Message] = append(byKey[d.Message], i)
	}
	return &Registry{
		descs: slices.Clone(descs),
		table: hierarchy.NewTable(registry, byKey),
	}
}

// All returns every descriptor in registration order.
func (r *Registry) All() []Descriptor {
	return slices.Clone(r.descs)
}

// ForBus returns the descriptors registered on bus.
func (r *Registry) ForBus(bus string) []Descriptor {
	var out []Descriptor
	for _, d := range r.descs {
		if d.Bus == bus {
			out = append(out, d)
		}
	}
	return out
}

// ForMessage returns the descriptors of the most specific registration
// matching msg.
func (r *Registry) ForMessage(msg any) []Descriptor {
	_, idx, ok := r.table.Match(msg)
	if !ok {
		return nil
	}
	out := make([]Descriptor, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.descs[i])
	}
	return out
}

// Rows renders every descriptor with naming, sorted by bus then message.
func (r *Registry) Rows(naming NamingStrategy) []Row {
	if naming == nil {
		naming = ShortNaming
	}
	rows := make([]Row, 0, len(r.descs))
	for _, d := range r.descs {
		rows = append(rows, Row{
			Type:      d.Category.String(),
			Message:   naming.Name(d.Message),
			Handler:   d.Handler,
			ServiceID: d.ServiceID,
			Bus:       d.Bus,
		})
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		if a.Bus != b.Bus {
			if a.Bus < b.Bus {
				return -1
			}
			return 1
		}
		switch {
		case a.Message < b.Message:
			return -1
		case a.Message > b.Message:
			return 1
		}
		return 0
	})
	return rows
}
