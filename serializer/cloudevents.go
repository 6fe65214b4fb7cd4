package serializer

import (
	"encoding/json"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/fxsml/busroute/envelope"
)

// CloudEvents extension names.
const (
	ExtensionCorrelationID = "correlationid"
	ExtensionCausationID   = "causationid"
)

// DefaultSource is the CloudEvents source used when none is configured.
const DefaultSource = "/busroute"

// CloudEventsCodec encodes the message as a structured CloudEvent. The event
// type is the message type key and the data is the JSON encoded message.
type CloudEventsCodec struct {
	Types  Types
	Source string

	// NewID returns event ids. Defaults to uuid.NewString.
	NewID func() string
	// Now returns the event time. Defaults to time.Now.
	Now func() time.Time
}

// Encode implements Codec.
func (c *CloudEventsCodec) Encode(env *envelope.Envelope) (Payload, error) {
	headers := encodeHeaders(env, NameCloudEvents, ContentTypeCloudEvents)

	e := cloudevents.NewEvent()
	e.SetID(c.newID())
	e.SetType(headers[HeaderType])
	e.SetSource(c.source())
	e.SetTime(c.now())
	if v := headers[HeaderCorrelationID]; v != "" {
		e.SetExtension(ExtensionCorrelationID, v)
	}
	if v := headers[HeaderCausationID]; v != "" {
		e.SetExtension(ExtensionCausationID, v)
	}
	if err := e.SetData(cloudevents.ApplicationJSON, env.Message()); err != nil {
		return Payload{}, fmt.Errorf("serializer: set data: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Payload{}, fmt.Errorf("serializer: invalid event: %w", err)
	}

	body, err := json.Marshal(e)
	if err != nil {
		return Payload{}, fmt.Errorf("serializer: encode cloudevent: %w", err)
	}
	return Payload{Body: body, Headers: headers}, nil
}

// Decode implements Codec. Correlation extensions fill in missing headers.
func (c *CloudEventsCodec) Decode(p Payload) (*envelope.Envelope, error) {
	var e cloudevents.Event
	if err := json.Unmarshal(p.Body, &e); err != nil {
		return nil, fmt.Errorf("serializer: decode cloudevent: %w", err)
	}

	inst, err := c.Types.instance(e.Type())
	if err != nil {
		return nil, err
	}
	if err := e.DataAs(inst); err != nil {
		return nil, fmt.Errorf("serializer: decode cloudevent data: %w", err)
	}

	headers := make(map[string]string, len(p.Headers)+2)
	for k, v := range p.Headers {
		headers[k] = v
	}
	headers[HeaderContentType] = ContentTypeCloudEvents
	ext := e.Extensions()
	if v, ok := ext[ExtensionCorrelationID].(string); ok && headers[HeaderCorrelationID] == "" {
		headers[HeaderCorrelationID] = v
	}
	if v, ok := ext[ExtensionCausationID].(string); ok && headers[HeaderCausationID] == "" {
		headers[HeaderCausationID] = v
	}
	return envelope.New(value(inst), decodeStamps(headers, NameCloudEvents)...), nil
}

func (c *CloudEventsCodec) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

func (c *CloudEventsCodec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *CloudEventsCodec) source() string {
	if c.Source != "" {
		return c.Source
	}
	return DefaultSource
}

var _ Codec = (*CloudEventsCodec)(nil)
