// Package kafka provides a Kafka transport built on segmentio/kafka-go.
//
// The message key is the correlation id when present, else the message
// type, so related envelopes land on the same partition.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"

	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/serializer"
	"github.com/fxsml/busroute/transport"
)

// Writer is the subset of *kafka.Writer used by Sender.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Reader is the subset of *kafka.Reader used by Receiver.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Sender writes envelopes to Kafka.
type Sender struct {
	writer Writer
	topic  string
	codec  serializer.Codec
}

// NewSender creates a sender. topic is set on each message and must be
// empty when the writer has its own Topic.
func NewSender(writer Writer, topic string, codec serializer.Codec) (*Sender, error) {
	if writer == nil || codec == nil {
		return nil, errors.New("kafka: writer and codec are required")
	}
	return &Sender{writer: writer, topic: topic, codec: codec}, nil
}

// Send implements transport.Sender.
func (s *Sender) Send(ctx context.Context, env *envelope.Envelope) error {
	p, err := s.codec.Encode(env)
	if err != nil {
		return err
	}

	key := p.Headers[serializer.HeaderCorrelationID]
	if key == "" {
		key = p.Headers[serializer.HeaderType]
	}
	msg := kafka.Message{
		Topic: s.topic,
		Key:   []byte(key),
		Value: p.Body,
	}
	for k, v := range p.Headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

// Receiver reads envelopes from Kafka. With a consumer group the reader
// commits offsets as messages are read.
type Receiver struct {
	reader Reader
	codec  serializer.Codec
}

// NewReceiver creates a receiver.
func NewReceiver(reader Reader, codec serializer.Codec) (*Receiver, error) {
	if reader == nil || codec == nil {
		return nil, errors.New("kafka: reader and codec are required")
	}
	return &Receiver{reader: reader, codec: codec}, nil
}

// Receive implements transport.Receiver.
func (r *Receiver) Receive(ctx context.Context) (*envelope.Envelope, error) {
	m, err := r.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, transport.ErrClosed
		}
		return nil, err
	}
	p := serializer.Payload{Body: m.Value, Headers: make(map[string]string, len(m.Headers))}
	for _, h := range m.Headers {
		p.Headers[h.Key] = string(h.Value)
	}
	env, err := r.codec.Decode(p)
	return env, transport.DecodeError(err)
}

var (
	_ transport.Sender   = (*Sender)(nil)
	_ transport.Receiver = (*Receiver)(nil)
	_ Writer             = (*kafka.Writer)(nil)
	_ Reader             = (*kafka.Reader)(nil)
)
