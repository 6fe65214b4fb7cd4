package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/serializer"
	"github.com/fxsml/busroute/transport"
)

type invoiceIssued struct {
	InvoiceID string `json:"invoice_id"`
}

func newTestTransport(t *testing.T) (*Transport, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	types := serializer.Types{}
	serializer.Register[invoiceIssued](types)
	tr, err := New(client, Config{
		Stream: "invoices",
		Block:  -1,
		Codec:  serializer.NewCodecs(types, "/billing"),
	})
	require.NoError(t, err)
	return tr, client
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Config{Codec: serializer.Codecs{}})
	assert.Error(t, err)
	_, err = New(redis.NewClient(&redis.Options{}), Config{})
	assert.Error(t, err)
}

func TestTransport_SendReceive(t *testing.T) {
	tr, client := newTestTransport(t)
	ctx := context.Background()

	require.NoError(t, tr.Send(ctx, envelope.New(invoiceIssued{InvoiceID: "i-1"},
		envelope.CorrelationStamp{CorrelationID: "c-1"})))
	require.NoError(t, tr.Send(ctx, envelope.New(invoiceIssued{InvoiceID: "i-2"},
		envelope.SerializerStamp{Name: serializer.NameCloudEvents})))

	n, err := client.XLen(ctx, "invoices").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, invoiceIssued{InvoiceID: "i-1"}, first.Message())
	corr, ok := envelope.Last[envelope.CorrelationStamp](first)
	require.True(t, ok)
	assert.Equal(t, "c-1", corr.CorrelationID)

	second, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, invoiceIssued{InvoiceID: "i-2"}, second.Message())
	s, ok := envelope.Last[envelope.SerializerStamp](second)
	require.True(t, ok)
	assert.Equal(t, serializer.NameCloudEvents, s.Name)

	_, err = tr.Receive(ctx)
	assert.ErrorIs(t, err, transport.ErrEmpty)
}

func TestPayloadOf(t *testing.T) {
	p := payloadOf(map[string]any{
		"body":                `{"a":1}`,
		"header:type":         "x.Y",
		"header:serializer":   "json",
		"unrelated":           "ignored",
		"header:not-a-string": 42,
	})
	assert.Equal(t, []byte(`{"a":1}`), p.Body)
	assert.Equal(t, map[string]string{"type": "x.Y", "serializer": "json"}, p.Headers)
}
