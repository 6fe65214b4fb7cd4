// Package config loads routing configuration and builds the resolvers,
// stamp decider chain and mode decider from it.
//
// A configuration file is YAML:
//
//	naming: kebab
//	defaults:
//	  command_mode: sync
//	  event_mode: async
//	  retry: retry.default
//	  serializer: json
//	  metadata: correlation
//	  transports:
//	    command_async: [redis]
//	    event_async: [redis]
//	  dispatch_after_current_bus:
//	    events: true
//	messages:
//	  github.com/acme/orders.PlaceOrder:
//	    mode: async
//	    transports: [kafka]
//	  "@event":
//	    serializer: cloudevents
//
// Message keys are type keys (see hierarchy.Key) or the reserved keys
// "@command", "@query" and "@event". Policy values are service ids looked up
// in the Services passed to Build.
//
// Environment variables overlay the file values of the defaults section.
// Names follow the pattern BUSROUTE_DEFAULT_{FIELD}:
//
//	BUSROUTE_NAMING=snake
//	BUSROUTE_DEFAULT_EVENT_MODE=sync
//	BUSROUTE_DEFAULT_TRANSPORTS_EVENT_ASYNC=kafka,redis
//	BUSROUTE_DEFAULT_DISPATCH_AFTER_CURRENT_BUS_EVENTS=false
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/fxsml/busroute"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "BUSROUTE_"

// ErrInvalid is returned when a configuration cannot be parsed.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the routing configuration.
type Config struct {
	// Naming selects the registry naming strategy. Default: "short".
	Naming string `yaml:"naming" env:"NAMING"`

	// Defaults hold the category and global defaults.
	Defaults Defaults `yaml:"defaults" envPrefix:"DEFAULT_"`

	// Messages hold the per-type overrides keyed by type key.
	Messages map[string]Message `yaml:"messages" env:"-"`
}

// Defaults are the fallback values used when no message override matches.
type Defaults struct {
	// CommandMode is the dispatch mode of commands. Default: sync.
	CommandMode busroute.Mode `yaml:"command_mode" env:"COMMAND_MODE"`

	// EventMode is the dispatch mode of events. Default: sync.
	EventMode busroute.Mode `yaml:"event_mode" env:"EVENT_MODE"`

	// Retry is the service id of the fallback retry policy.
	// Empty means no retries.
	Retry string `yaml:"retry" env:"RETRY"`

	// Serializer is the service id of the default serializer.
	// Empty means no serializer stamp.
	Serializer string `yaml:"serializer" env:"SERIALIZER"`

	// Metadata is the service id of the default metadata provider.
	// Empty means no metadata stamp.
	Metadata string `yaml:"metadata" env:"METADATA"`

	// Transports are the default transport names per category and mode.
	Transports Transports `yaml:"transports" envPrefix:"TRANSPORTS_"`

	// DispatchAfterCurrentBus defers asynchronous dispatches until the
	// current bus finishes.
	DispatchAfterCurrentBus Deferral `yaml:"dispatch_after_current_bus" envPrefix:"DISPATCH_AFTER_CURRENT_BUS_"`
}

// Transports are transport name lists per category and mode.
type Transports struct {
	CommandSync  []string `yaml:"command_sync" env:"COMMAND_SYNC" envSeparator:","`
	CommandAsync []string `yaml:"command_async" env:"COMMAND_ASYNC" envSeparator:","`
	EventSync    []string `yaml:"event_sync" env:"EVENT_SYNC" envSeparator:","`
	EventAsync   []string `yaml:"event_async" env:"EVENT_ASYNC" envSeparator:","`
	Query        []string `yaml:"query" env:"QUERY" envSeparator:","`
}

// Deferral enables dispatch-after-current-bus per category.
type Deferral struct {
	Commands bool `yaml:"commands" env:"COMMANDS"`
	Events   bool `yaml:"events" env:"EVENTS"`
}

// Message overrides the defaults for a type key.
type Message struct {
	// Mode overrides the dispatch mode.
	Mode *busroute.Mode `yaml:"mode"`

	// Retry, Serializer and Metadata are service ids.
	Retry      string `yaml:"retry"`
	Serializer string `yaml:"serializer"`
	Metadata   string `yaml:"metadata"`

	// Transports is a transport name or a list of names used for
	// asynchronous dispatch and for queries.
	Transports any `yaml:"transports"`

	// SyncTransports is used for synchronous dispatch of commands and
	// events.
	SyncTransports any `yaml:"sync_transports"`

	// DispatchAfterCurrentBus overrides the category default.
	DispatchAfterCurrentBus *bool `yaml:"dispatch_after_current_bus"`
}

// Load reads the YAML file at path and overlays environment variables.
// An empty path loads the environment only.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return Parse(data, nil)
}

// Parse decodes YAML data and overlays the given environment. A nil
// environment reads the process environment.
//
// Only variables that are set change a field; all other fields keep their
// file values.
func Parse(data []byte, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}
