package override

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/hierarchy"
	"github.com/fxsml/busroute/policy"
)

type Audited interface{ AuditTrail() string }

type createOrder struct{}

func (createOrder) IsCommand()         {}
func (createOrder) AuditTrail() string { return "orders" }

type cancelOrder struct{}

func (cancelOrder) IsCommand() {}

type archiveOrder struct{}

func (archiveOrder) IsCommand() {}

type orderPlaced struct{}

func (orderPlaced) IsEvent() {}

type untagged struct{}

var registry = hierarchy.NewRegistry(hierarchy.Interface[Audited]())

func TestResolver_Tiers(t *testing.T) {
	r, err := NewResolver(hierarchy.NewTable(registry, map[hierarchy.Key]string{
		KeyGlobalDefault:                "global",
		KeyCommandDefault:               "command",
		hierarchy.KeyFor[Audited]():     "audited",
		hierarchy.KeyFor[cancelOrder](): "cancel",
	}))
	require.NoError(t, err)

	tests := []struct {
		name    string
		msg     any
		want    string
		wantKey hierarchy.Key
	}{
		{"class override", cancelOrder{}, "cancel", hierarchy.KeyFor[cancelOrder]()},
		{"interface override", createOrder{}, "audited", hierarchy.KeyFor[Audited]()},
		{"parent class override", &struct{ cancelOrder }{}, "cancel", hierarchy.KeyFor[cancelOrder]()},
		{"category default", archiveOrder{}, "command", KeyCommandDefault},
		{"global default for event", orderPlaced{}, "global", KeyGlobalDefault},
		{"global default for untagged", untagged{}, "global", KeyGlobalDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, got := r.ResolveKey(tt.msg)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.want, r.Resolve(tt.msg))
		})
	}
}

func TestResolver_MissingGlobalDefault(t *testing.T) {
	_, err := NewResolver(hierarchy.NewTable(nil, map[hierarchy.Key]bool{KeyEventDefault: true}))

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, KeyGlobalDefault, cfgErr.Key)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestBind(t *testing.T) {
	jsonStamp := policy.SerializerFunc(func(any, busroute.Mode) (envelope.Stamp, bool) {
		return envelope.SerializerStamp{Name: "json"}, true
	})

	t.Run("accepts matching services", func(t *testing.T) {
		bound, err := Bind[policy.Serializer](map[hierarchy.Key]any{
			KeyGlobalDefault: jsonStamp,
		}, policy.CapabilitySerializer)
		require.NoError(t, err)
		assert.Len(t, bound, 1)
	})

	t.Run("rejects service without capability", func(t *testing.T) {
		_, err := Bind[policy.RetryPolicy](map[hierarchy.Key]any{
			KeyGlobalDefault:                policy.NoRetry,
			hierarchy.KeyFor[createOrder](): jsonStamp,
		}, policy.CapabilityRetryPolicy)

		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, hierarchy.KeyFor[createOrder](), cfgErr.Key)
		assert.Equal(t, policy.CapabilityRetryPolicy, cfgErr.Capability)
		assert.Contains(t, err.Error(), "policy.RetryPolicy")
	})
}

func TestRetryResolver(t *testing.T) {
	fast := policy.RetryPolicyFunc(func(any, busroute.Mode) []envelope.Stamp {
		return []envelope.Stamp{envelope.RetryStamp{MaxAttempts: 5}}
	})

	r, err := NewRetryResolver(hierarchy.NewTable(registry, map[hierarchy.Key]policy.RetryPolicy{
		hierarchy.KeyFor[Audited](): fast,
	}), policy.NoRetry)
	require.NoError(t, err)

	assert.Len(t, r.Resolve(createOrder{}).RetryStamps(createOrder{}, busroute.Async), 1)
	assert.Empty(t, r.Resolve(cancelOrder{}).RetryStamps(cancelOrder{}, busroute.Async))

	_, err = NewRetryResolver(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	r, err = NewRetryResolver(nil, fast)
	require.NoError(t, err)
	assert.Len(t, r.Resolve(cancelOrder{}).RetryStamps(cancelOrder{}, busroute.Sync), 1)
}

func TestTransportResolver(t *testing.T) {
	r, err := NewTransportResolver(registry, map[hierarchy.Key]any{
		KeyGlobalDefault:                []string{},
		KeyEventDefault:                 "events",
		hierarchy.KeyFor[Audited]():     []any{"audit", "redis", "audit"},
		hierarchy.KeyFor[cancelOrder](): []string{"amqp", "amqp", "redis"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"audit", "redis"}, r.Resolve(createOrder{}))
	assert.Equal(t, []string{"amqp", "redis"}, r.Resolve(cancelOrder{}))
	assert.Equal(t, []string{"events"}, r.Resolve(orderPlaced{}))
	assert.Empty(t, r.Resolve(untagged{}))

	// Callers cannot corrupt the table.
	names := r.Resolve(createOrder{})
	names[0] = "changed"
	assert.Equal(t, []string{"audit", "redis"}, r.Resolve(createOrder{}))
}

func TestNormalizeTransportNames_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"number", 42},
		{"list with number", []any{"a", 1}},
		{"map", map[string]string{"a": "b"}},
		{"empty name", []string{"a", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeTransportNames("k", tt.value)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, hierarchy.Key("k"), cfgErr.Key)
		})
	}

	_, err := NewTransportResolver(nil, map[hierarchy.Key]any{KeyGlobalDefault: 3})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
