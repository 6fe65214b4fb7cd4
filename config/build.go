package config

import (
	"fmt"
	"sort"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/decider"
	"github.com/fxsml/busroute/hierarchy"
	"github.com/fxsml/busroute/metadata"
	"github.com/fxsml/busroute/override"
	"github.com/fxsml/busroute/policy"
	"github.com/fxsml/busroute/registry"
	"github.com/fxsml/busroute/retry"
	"github.com/fxsml/busroute/serializer"
)

// Services maps service ids to policy implementations. A service is checked
// against the capability its configuration entry requires.
type Services map[string]any

// DefaultServices returns the built-in services:
//
//	json, cloudevents   serializers
//	correlation         correlation id metadata provider
//	retry.none          no retries
//	retry.default       3 attempts, exponential backoff
func DefaultServices() Services {
	return Services{
		serializer.NameJSON:        serializer.JSON{},
		serializer.NameCloudEvents: serializer.CloudEvents{},
		"correlation":              metadata.Correlation{},
		"retry.none":               policy.NoRetry,
		"retry.default":            retry.Policy{Multiplier: 2},
	}
}

// With returns a copy of s extended by more. Entries of more win.
func (s Services) With(more Services) Services {
	out := make(Services, len(s)+len(more))
	for id, svc := range s {
		out[id] = svc
	}
	for id, svc := range more {
		out[id] = svc
	}
	return out
}

// Routing is the result of Build.
type Routing struct {
	// Modes decides the dispatch mode of a message.
	Modes *decider.ModeDecider

	// Stamps is the stamp decider chain.
	Stamps *decider.Chain

	// Naming names message types in the handler registry.
	Naming registry.NamingStrategy
}

// Build turns cfg into resolvers and deciders. Every referenced service must
// exist in services and provide the capability of the entry it is used in.
// Errors are *override.ConfigError values.
func Build(cfg *Config, services Services, reg *hierarchy.Registry) (*Routing, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	b := builder{cfg: cfg, services: services, registry: reg}

	naming, ok := registry.Naming(cfg.Naming)
	if !ok {
		return nil, &override.ConfigError{
			Key:    "naming",
			Reason: fmt.Sprintf("unknown naming strategy %q", cfg.Naming),
		}
	}

	modes, err := b.modes()
	if err != nil {
		return nil, err
	}
	set, err := b.deciders()
	if err != nil {
		return nil, err
	}
	return &Routing{
		Modes:  decider.NewModeDecider(modes),
		Stamps: set.Chain(),
		Naming: naming,
	}, nil
}

type builder struct {
	cfg      *Config
	services Services
	registry *hierarchy.Registry
}

// keys returns the message keys in a stable order.
func (b builder) keys() []string {
	keys := make([]string, 0, len(b.cfg.Messages))
	for k := range b.cfg.Messages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b builder) modes() (*override.Resolver[busroute.Mode], error) {
	entries := map[hierarchy.Key]busroute.Mode{
		override.KeyGlobalDefault:  busroute.Sync,
		override.KeyCommandDefault: b.cfg.Defaults.CommandMode,
		override.KeyEventDefault:   b.cfg.Defaults.EventMode,
	}
	for _, k := range b.keys() {
		if m := b.cfg.Messages[k].Mode; m != nil {
			entries[hierarchy.Key(k)] = *m
		}
	}
	return override.NewResolver(hierarchy.NewTable(b.registry, entries))
}

func (b builder) deciders() (decider.Set, error) {
	retryResolver, err := b.retry()
	if err != nil {
		return decider.Set{}, err
	}
	serializers, err := bindResolver[policy.Serializer](b, b.cfg.Defaults.Serializer, policy.NoSerializer,
		func(m Message) string { return m.Serializer }, policy.CapabilitySerializer)
	if err != nil {
		return decider.Set{}, err
	}
	providers, err := bindResolver[policy.MetadataProvider](b, b.cfg.Defaults.Metadata, policy.NoMetadata,
		func(m Message) string { return m.Metadata }, policy.CapabilityMetadataProvider)
	if err != nil {
		return decider.Set{}, err
	}
	transports, err := b.transports()
	if err != nil {
		return decider.Set{}, err
	}
	deferral, err := b.deferral()
	if err != nil {
		return decider.Set{}, err
	}
	return decider.Set{
		Retry:                   []decider.Decider{&decider.RetryPolicyDecider{Resolver: retryResolver}},
		Serializer:              []decider.Decider{&decider.SerializerDecider{Resolver: serializers}},
		Metadata:                []decider.Decider{&decider.MetadataDecider{Resolver: providers}},
		Transport:               transports,
		DispatchAfterCurrentBus: deferral,
	}, nil
}

// service looks up id for key. Unknown ids are configuration errors.
func (b builder) service(key hierarchy.Key, id string) (any, error) {
	svc, ok := b.services[id]
	if !ok {
		return nil, &override.ConfigError{
			Key:    key,
			Reason: fmt.Sprintf("unknown service %q", id),
		}
	}
	return svc, nil
}

// entries collects the service of every message that sets an id.
func (b builder) entries(id func(Message) string) (map[hierarchy.Key]any, error) {
	out := make(map[hierarchy.Key]any)
	for _, k := range b.keys() {
		name := id(b.cfg.Messages[k])
		if name == "" {
			continue
		}
		svc, err := b.service(hierarchy.Key(k), name)
		if err != nil {
			return nil, err
		}
		out[hierarchy.Key(k)] = svc
	}
	return out, nil
}

func (b builder) retry() (*override.RetryResolver, error) {
	entries, err := b.entries(func(m Message) string { return m.Retry })
	if err != nil {
		return nil, err
	}
	bound, err := override.Bind[policy.RetryPolicy](entries, policy.CapabilityRetryPolicy)
	if err != nil {
		return nil, err
	}

	fallback := policy.NoRetry
	if id := b.cfg.Defaults.Retry; id != "" {
		svc, err := b.service(override.KeyGlobalDefault, id)
		if err != nil {
			return nil, err
		}
		p, err := override.Bind[policy.RetryPolicy](map[hierarchy.Key]any{
			override.KeyGlobalDefault: svc,
		}, policy.CapabilityRetryPolicy)
		if err != nil {
			return nil, err
		}
		fallback = p[override.KeyGlobalDefault]
	}
	return override.NewRetryResolver(hierarchy.NewTable(b.registry, bound), fallback)
}

// bindResolver builds a three-tier resolver of services providing V.
func bindResolver[V any](b builder, defaultID string, none V, id func(Message) string, capability string) (*override.Resolver[V], error) {
	entries, err := b.entries(id)
	if err != nil {
		return nil, err
	}
	if defaultID != "" {
		svc, err := b.service(override.KeyGlobalDefault, defaultID)
		if err != nil {
			return nil, err
		}
		entries[override.KeyGlobalDefault] = svc
	}
	bound, err := override.Bind[V](entries, capability)
	if err != nil {
		return nil, err
	}
	if _, ok := bound[override.KeyGlobalDefault]; !ok {
		bound[override.KeyGlobalDefault] = none
	}
	return override.NewResolver(hierarchy.NewTable(b.registry, bound))
}

func (b builder) transports() (*decider.TransportDecider, error) {
	d := b.cfg.Defaults.Transports
	build := func(defaults []string, value func(Message) any) (*override.TransportResolver, error) {
		entries := map[hierarchy.Key]any{
			override.KeyGlobalDefault: defaults,
		}
		for _, k := range b.keys() {
			if v := value(b.cfg.Messages[k]); v != nil {
				entries[hierarchy.Key(k)] = v
			}
		}
		return override.NewTransportResolver(b.registry, entries)
	}
	async := func(m Message) any { return m.Transports }
	sync := func(m Message) any { return m.SyncTransports }

	var (
		t   decider.TransportDecider
		err error
	)
	if t.CommandSync, err = build(d.CommandSync, sync); err != nil {
		return nil, err
	}
	if t.CommandAsync, err = build(d.CommandAsync, async); err != nil {
		return nil, err
	}
	if t.EventSync, err = build(d.EventSync, sync); err != nil {
		return nil, err
	}
	if t.EventAsync, err = build(d.EventAsync, async); err != nil {
		return nil, err
	}
	if t.Query, err = build(d.Query, async); err != nil {
		return nil, err
	}
	return &t, nil
}

func (b builder) deferral() (*decider.DispatchAfterCurrentBusDecider, error) {
	build := func(def bool) (*override.Resolver[bool], error) {
		entries := map[hierarchy.Key]bool{override.KeyGlobalDefault: def}
		for _, k := range b.keys() {
			if v := b.cfg.Messages[k].DispatchAfterCurrentBus; v != nil {
				entries[hierarchy.Key(k)] = *v
			}
		}
		return override.NewResolver(hierarchy.NewTable(b.registry, entries))
	}
	commands, err := build(b.cfg.Defaults.DispatchAfterCurrentBus.Commands)
	if err != nil {
		return nil, err
	}
	events, err := build(b.cfg.Defaults.DispatchAfterCurrentBus.Events)
	if err != nil {
		return nil, err
	}
	return &decider.DispatchAfterCurrentBusDecider{Commands: commands, Events: events}, nil
}
