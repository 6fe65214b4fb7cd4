// Package redis provides a Redis Streams transport.
//
// Each envelope is one stream entry: the encoded body under "body" and each
// codec header under "header:<name>". Receive reads entries in order with
// XREAD and remembers the last id it returned.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/serializer"
	"github.com/fxsml/busroute/transport"
)

const (
	fieldBody    = "body"
	headerPrefix = "header:"
)

// Client is the subset of the go-redis client used by Transport.
// *redis.Client and *redis.ClusterClient satisfy it.
type Client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRead(ctx context.Context, a *redis.XReadArgs) *redis.XStreamSliceCmd
}

// Config configures a Transport.
type Config struct {
	// Stream is the stream key. Default is "busroute".
	Stream string

	// MaxLen caps the stream length approximately. Zero means no cap.
	MaxLen int64

	// Block is how long XREAD waits for new entries. Default is 1 second.
	// A negative value makes Receive non-blocking; it then returns
	// transport.ErrEmpty when nothing is pending.
	Block time.Duration

	// StartID is the id Receive starts after. Default is "0", the start
	// of the stream. Use "$" to receive only new entries.
	StartID string

	// Codec encodes envelopes. Required.
	Codec serializer.Codec

	// Logger for operational logging. If nil, uses slog.Default().
	Logger busroute.Logger
}

func (c Config) applyDefaults() Config {
	if c.Stream == "" {
		c.Stream = "busroute"
	}
	if c.Block == 0 {
		c.Block = time.Second
	}
	if c.StartID == "" {
		c.StartID = "0"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Transport sends to and receives from one Redis stream.
type Transport struct {
	client Client
	config Config

	mu     sync.Mutex
	lastID string
}

// New creates a transport.
func New(client Client, config Config) (*Transport, error) {
	if client == nil {
		return nil, errors.New("redis: client is required")
	}
	if config.Codec == nil {
		return nil, errors.New("redis: codec is required")
	}
	config = config.applyDefaults()
	return &Transport{
		client: client,
		config: config,
		lastID: config.StartID,
	}, nil
}

// Send implements transport.Sender.
func (t *Transport) Send(ctx context.Context, env *envelope.Envelope) error {
	p, err := t.config.Codec.Encode(env)
	if err != nil {
		return err
	}

	values := make(map[string]any, len(p.Headers)+1)
	values[fieldBody] = string(p.Body)
	for k, v := range p.Headers {
		values[headerPrefix+k] = v
	}

	args := &redis.XAddArgs{
		Stream: t.config.Stream,
		Values: values,
	}
	if t.config.MaxLen > 0 {
		args.MaxLen = t.config.MaxLen
		args.Approx = true
	}

	id, err := t.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("redis: xadd %s: %w", t.config.Stream, err)
	}
	t.config.Logger.Debug("Sent envelope", "stream", t.config.Stream, "id", id)
	return nil
}

// Receive implements transport.Receiver.
func (t *Transport) Receive(ctx context.Context) (*envelope.Envelope, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		streams, err := t.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{t.config.Stream, t.lastID},
			Count:   1,
			Block:   t.config.Block,
		}).Result()
		if errors.Is(err, redis.Nil) || (err == nil && !hasMessages(streams)) {
			if t.config.Block < 0 {
				return nil, transport.ErrEmpty
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			if errors.Is(err, redis.ErrClosed) {
				return nil, transport.ErrClosed
			}
			return nil, fmt.Errorf("redis: xread %s: %w", t.config.Stream, err)
		}

		msg := streams[0].Messages[0]
		t.lastID = msg.ID
		env, err := t.config.Codec.Decode(payloadOf(msg.Values))
		return env, transport.DecodeError(err)
	}
}

func hasMessages(streams []redis.XStream) bool {
	return len(streams) > 0 && len(streams[0].Messages) > 0
}

func payloadOf(values map[string]any) serializer.Payload {
	p := serializer.Payload{Headers: make(map[string]string, len(values))}
	for k, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if k == fieldBody {
			p.Body = []byte(s)
			continue
		}
		if name, ok := strings.CutPrefix(k, headerPrefix); ok {
			p.Headers[name] = s
		}
	}
	return p
}

var (
	_ transport.Sender   = (*Transport)(nil)
	_ transport.Receiver = (*Transport)(nil)
	_ Client             = (*redis.Client)(nil)
)
