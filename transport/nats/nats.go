// Package nats provides a NATS transport.
//
// Envelopes are published as NATS messages with the codec headers as NATS
// headers. Subjects, queue groups and JetStream are configured on the
// connection and subscription the caller passes in.
package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/serializer"
	"github.com/fxsml/busroute/transport"
)

// Publisher is the subset of *nats.Conn used by Sender.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// Subscription is the subset of *nats.Subscription used by Receiver.
// Use a synchronous subscription such as conn.SubscribeSync or
// conn.QueueSubscribeSync.
type Subscription interface {
	NextMsgWithContext(ctx context.Context) (*nats.Msg, error)
}

// Sender publishes envelopes to one subject.
type Sender struct {
	conn    Publisher
	subject string
	codec   serializer.Codec
}

// NewSender creates a sender.
func NewSender(conn Publisher, subject string, codec serializer.Codec) (*Sender, error) {
	if conn == nil || codec == nil {
		return nil, errors.New("nats: connection and codec are required")
	}
	if subject == "" {
		return nil, errors.New("nats: subject is required")
	}
	return &Sender{conn: conn, subject: subject, codec: codec}, nil
}

// Send implements transport.Sender.
func (s *Sender) Send(_ context.Context, env *envelope.Envelope) error {
	p, err := s.codec.Encode(env)
	if err != nil {
		return err
	}
	m := nats.NewMsg(s.subject)
	m.Data = p.Body
	for k, v := range p.Headers {
		m.Header.Set(k, v)
	}
	if err := s.conn.PublishMsg(m); err != nil {
		return fmt.Errorf("nats: publish %s: %w", s.subject, err)
	}
	return nil
}

// Receiver reads envelopes from a subscription.
type Receiver struct {
	sub   Subscription
	codec serializer.Codec
}

// NewReceiver creates a receiver.
func NewReceiver(sub Subscription, codec serializer.Codec) (*Receiver, error) {
	if sub == nil || codec == nil {
		return nil, errors.New("nats: subscription and codec are required")
	}
	return &Receiver{sub: sub, codec: codec}, nil
}

// Receive implements transport.Receiver.
func (r *Receiver) Receive(ctx context.Context) (*envelope.Envelope, error) {
	m, err := r.sub.NextMsgWithContext(ctx)
	if err != nil {
		if errors.Is(err, nats.ErrBadSubscription) || errors.Is(err, nats.ErrConnectionClosed) {
			return nil, transport.ErrClosed
		}
		return nil, err
	}
	env, err := r.codec.Decode(payloadOf(m))
	return env, transport.DecodeError(err)
}

// payloadOf lowercases header names; codec headers are lowercase.
func payloadOf(m *nats.Msg) serializer.Payload {
	p := serializer.Payload{Body: m.Data, Headers: make(map[string]string, len(m.Header))}
	for k, vs := range m.Header {
		if len(vs) > 0 {
			p.Headers[strings.ToLower(k)] = vs[0]
		}
	}
	return p
}

var (
	_ transport.Sender   = (*Sender)(nil)
	_ transport.Receiver = (*Receiver)(nil)
	_ Publisher          = (*nats.Conn)(nil)
	_ Subscription       = (*nats.Subscription)(nil)
)
