package serializer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/fxsml/busroute/envelope"
)

// ErrInvalidJSON is returned when a body is not valid JSON.
var ErrInvalidJSON = errors.New("serializer: invalid json")

// JSONCodec encodes the message as a JSON body and its stamps as headers.
type JSONCodec struct {
	Types Types

	// TypePath is a gjson path into the body that holds the type key. It is
	// used when the type header is missing, as for payloads published by
	// other producers. Register aliases in Types for foreign type names.
	TypePath string
}

// Encode implements Codec.
func (c *JSONCodec) Encode(env *envelope.Envelope) (Payload, error) {
	body, err := json.Marshal(env.Message())
	if err != nil {
		return Payload{}, fmt.Errorf("serializer: encode json: %w", err)
	}
	return Payload{
		Body:    body,
		Headers: encodeHeaders(env, NameJSON, ContentTypeJSON),
	}, nil
}

// Decode implements Codec.
func (c *JSONCodec) Decode(p Payload) (*envelope.Envelope, error) {
	typ := p.Headers[HeaderType]
	if typ == "" && c.TypePath != "" {
		if !gjson.ValidBytes(p.Body) {
			return nil, ErrInvalidJSON
		}
		if r := gjson.GetBytes(p.Body, c.TypePath); r.Type == gjson.String {
			typ = r.String()
		}
	}
	inst, err := c.Types.instance(typ)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(p.Body, inst); err != nil {
		return nil, fmt.Errorf("serializer: decode json: %w", err)
	}
	return envelope.New(value(inst), decodeStamps(p.Headers, NameJSON)...), nil
}

var _ Codec = (*JSONCodec)(nil)
