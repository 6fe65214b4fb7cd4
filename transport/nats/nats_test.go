package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/serializer"
	"github.com/fxsml/busroute/transport"
)

type parcelScanned struct {
	Barcode string `json:"barcode"`
}

// loopback is a Publisher and Subscription connected by a channel.
type loopback struct {
	msgs chan *nats.Msg
	err  error
}

func (l *loopback) PublishMsg(m *nats.Msg) error {
	if l.err != nil {
		return l.err
	}
	l.msgs <- m
	return nil
}

func (l *loopback) NextMsgWithContext(ctx context.Context) (*nats.Msg, error) {
	select {
	case m, ok := <-l.msgs:
		if !ok {
			return nil, nats.ErrConnectionClosed
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newCodec() serializer.Codec {
	types := serializer.Types{}
	serializer.Register[parcelScanned](types)
	return serializer.NewCodecs(types, "")
}

func TestSendReceive(t *testing.T) {
	lb := &loopback{msgs: make(chan *nats.Msg, 1)}
	sender, err := NewSender(lb, "parcels.scanned", newCodec())
	require.NoError(t, err)
	receiver, err := NewReceiver(lb, newCodec())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sender.Send(ctx, envelope.New(parcelScanned{Barcode: "b-1"},
		envelope.CorrelationStamp{CorrelationID: "c-9"})))

	published := <-lb.msgs
	assert.Equal(t, "parcels.scanned", published.Subject)
	assert.Equal(t, serializer.NameJSON, published.Header.Get(serializer.HeaderSerializer))
	lb.msgs <- published

	env, err := receiver.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, parcelScanned{Barcode: "b-1"}, env.Message())
	corr, ok := envelope.Last[envelope.CorrelationStamp](env)
	require.True(t, ok)
	assert.Equal(t, "c-9", corr.CorrelationID)
}

func TestSend_PublishError(t *testing.T) {
	lb := &loopback{err: errors.New("no responders")}
	sender, err := NewSender(lb, "parcels", newCodec())
	require.NoError(t, err)
	err = sender.Send(context.Background(), envelope.New(parcelScanned{}))
	assert.ErrorContains(t, err, "no responders")
}

func TestReceive_Closed(t *testing.T) {
	lb := &loopback{msgs: make(chan *nats.Msg)}
	close(lb.msgs)
	receiver, err := NewReceiver(lb, newCodec())
	require.NoError(t, err)
	_, err = receiver.Receive(context.Background())
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestPayloadOf_LowercasesHeaders(t *testing.T) {
	p := payloadOf(&nats.Msg{
		Data:   []byte("{}"),
		Header: nats.Header{"Content-Type": {"application/json"}, "type": {"x.Y"}},
	})
	assert.Equal(t, map[string]string{"content-type": "application/json", "type": "x.Y"}, p.Headers)
}

func TestNew_Validation(t *testing.T) {
	_, err := NewSender(nil, "s", newCodec())
	assert.Error(t, err)
	_, err = NewSender(&loopback{}, "", newCodec())
	assert.Error(t, err)
	_, err = NewReceiver(&loopback{}, nil)
	assert.Error(t, err)
}
