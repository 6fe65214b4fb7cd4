// Package amqp provides a RabbitMQ transport built on rabbitmq/amqp091-go.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/serializer"
	"github.com/fxsml/busroute/transport"
)

// Publisher is the subset of *amqp.Channel used by Sender.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// SenderConfig configures a Sender.
type SenderConfig struct {
	// Exchange to publish to. Empty means the default exchange.
	Exchange string

	// RoutingKey of published messages. With the default exchange this is
	// the queue name.
	RoutingKey string

	// Mandatory makes the broker return unroutable messages.
	Mandatory bool

	// Transient disables persistent delivery.
	Transient bool

	// Codec encodes envelopes. Required.
	Codec serializer.Codec
}

// Sender publishes envelopes to an exchange.
type Sender struct {
	ch     Publisher
	config SenderConfig
}

// NewSender creates a sender.
func NewSender(ch Publisher, config SenderConfig) (*Sender, error) {
	if ch == nil || config.Codec == nil {
		return nil, errors.New("amqp: channel and codec are required")
	}
	return &Sender{ch: ch, config: config}, nil
}

// Send implements transport.Sender.
func (s *Sender) Send(ctx context.Context, env *envelope.Envelope) error {
	p, err := s.config.Codec.Encode(env)
	if err != nil {
		return err
	}

	headers := make(amqp.Table, len(p.Headers))
	for k, v := range p.Headers {
		headers[k] = v
	}
	msg := amqp.Publishing{
		Headers:       headers,
		ContentType:   p.Headers[serializer.HeaderContentType],
		CorrelationId: p.Headers[serializer.HeaderCorrelationID],
		Type:          p.Headers[serializer.HeaderType],
		Timestamp:     time.Now(),
		DeliveryMode:  amqp.Persistent,
		Body:          p.Body,
	}
	if s.config.Transient {
		msg.DeliveryMode = amqp.Transient
	}

	err = s.ch.PublishWithContext(ctx, s.config.Exchange, s.config.RoutingKey, s.config.Mandatory, false, msg)
	if err != nil {
		return fmt.Errorf("amqp: publish to %q: %w", s.config.Exchange, err)
	}
	return nil
}

// Receiver reads envelopes from a consumer's delivery channel.
type Receiver struct {
	deliveries <-chan amqp.Delivery
	codec      serializer.Codec
	autoAck    bool
}

// NewReceiver creates a receiver over deliveries from channel.Consume.
// Unless autoAck matches the consumer's setting, each delivery is acked
// once decoded and rejected without requeue when it cannot be decoded.
func NewReceiver(deliveries <-chan amqp.Delivery, codec serializer.Codec, autoAck bool) (*Receiver, error) {
	if deliveries == nil || codec == nil {
		return nil, errors.New("amqp: deliveries and codec are required")
	}
	return &Receiver{deliveries: deliveries, codec: codec, autoAck: autoAck}, nil
}

// Receive implements transport.Receiver.
func (r *Receiver) Receive(ctx context.Context) (*envelope.Envelope, error) {
	var d amqp.Delivery
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-r.deliveries:
		if !ok {
			return nil, transport.ErrClosed
		}
		d = msg
	}

	p := serializer.Payload{Body: d.Body, Headers: make(map[string]string, len(d.Headers))}
	for k, v := range d.Headers {
		if s, ok := v.(string); ok {
			p.Headers[k] = s
		}
	}

	env, err := r.codec.Decode(p)
	if err != nil {
		err = transport.DecodeError(err)
		if !r.autoAck {
			err = errors.Join(err, d.Reject(false))
		}
		return nil, err
	}
	if !r.autoAck {
		if err := d.Ack(false); err != nil {
			return nil, fmt.Errorf("amqp: ack: %w", err)
		}
	}
	return env, nil
}

var (
	_ transport.Sender   = (*Sender)(nil)
	_ transport.Receiver = (*Receiver)(nil)
	_ Publisher          = (*amqp.Channel)(nil)
)
