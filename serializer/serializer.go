// Package serializer selects and implements the encoding of messages that
// leave the process through a transport.
//
// JSON and CloudEvents are policy.Serializer implementations that stamp a
// dispatch with envelope.SerializerStamp. Codecs turns a stamped envelope into
// a Payload and back, choosing the Codec named by the stamp.
package serializer

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/hierarchy"
	"github.com/fxsml/busroute/policy"
)

// Codec names.
const (
	NameJSON        = "json"
	NameCloudEvents = "cloudevents"
)

// Content types.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeCloudEvents = "application/cloudevents+json"
)

var (
	// ErrUnknownSerializer is returned when no codec has the requested name.
	ErrUnknownSerializer = errors.New("serializer: unknown serializer")

	// ErrUnknownType is returned when decoding a type that is not registered.
	ErrUnknownType = errors.New("serializer: unknown message type")
)

// JSON selects the JSON codec.
type JSON struct{}

// SerializerStamp implements policy.Serializer.
func (JSON) SerializerStamp(any, busroute.Mode) (envelope.Stamp, bool) {
	return envelope.SerializerStamp{Name: NameJSON, ContentType: ContentTypeJSON}, true
}

// CloudEvents selects the CloudEvents codec.
type CloudEvents struct{}

// SerializerStamp implements policy.Serializer.
func (CloudEvents) SerializerStamp(any, busroute.Mode) (envelope.Stamp, bool) {
	return envelope.SerializerStamp{Name: NameCloudEvents, ContentType: ContentTypeCloudEvents}, true
}

// Payload is the transport representation of an envelope.
type Payload struct {
	Body    []byte
	Headers map[string]string
}

// Codec encodes envelopes to payloads and back.
type Codec interface {
	Encode(env *envelope.Envelope) (Payload, error)
	Decode(p Payload) (*envelope.Envelope, error)
}

// Codecs selects a codec by name. Envelopes without SerializerStamp and
// payloads without serializer header use the JSON codec.
type Codecs map[string]Codec

// NewCodecs creates the JSON and CloudEvents codecs sharing types.
// source is the CloudEvents source attribute.
func NewCodecs(types Types, source string) Codecs {
	return Codecs{
		NameJSON:        &JSONCodec{Types: types},
		NameCloudEvents: &CloudEventsCodec{Types: types, Source: source},
	}
}

// Encode encodes env with the codec named by its SerializerStamp.
func (c Codecs) Encode(env *envelope.Envelope) (Payload, error) {
	name := NameJSON
	if s, ok := envelope.Last[envelope.SerializerStamp](env); ok && s.Name != "" {
		name = s.Name
	}
	codec, ok := c[name]
	if !ok {
		return Payload{}, fmt.Errorf("%w: %q", ErrUnknownSerializer, name)
	}
	return codec.Encode(env)
}

// Decode decodes p with the codec named by its serializer header.
func (c Codecs) Decode(p Payload) (*envelope.Envelope, error) {
	name := p.Headers[HeaderSerializer]
	if name == "" {
		name = NameJSON
	}
	codec, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSerializer, name)
	}
	return codec.Decode(p)
}

// Types creates message instances for decoding.
type Types map[hierarchy.Key]func() any

// Register adds the message type T to m.
func Register[T any](m Types) {
	m[hierarchy.KeyFor[T]()] = func() any { return new(T) }
}

// NewInstance returns a pointer to a new instance, or nil if unknown.
func (m Types) NewInstance(k hierarchy.Key) any {
	if f, ok := m[k]; ok {
		return f()
	}
	return nil
}

func (m Types) instance(k string) (any, error) {
	inst := m.NewInstance(hierarchy.Key(k))
	if inst == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, k)
	}
	return inst, nil
}

// value dereferences the pointer created by Types so the decoded message has
// the same dynamic type as the one that was sent.
func value(ptr any) any {
	v := reflect.ValueOf(ptr)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		return v.Elem().Interface()
	}
	return ptr
}

var (
	_ policy.Serializer = JSON{}
	_ policy.Serializer = CloudEvents{}
)
