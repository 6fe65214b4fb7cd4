package serializer

import (
	"strconv"
	"time"

	"github.com/fxsml/busroute/envelope"
	"github.com/fxsml/busroute/hierarchy"
)

// Header keys written by every codec.
const (
	HeaderType            = "type"
	HeaderSerializer      = "serializer"
	HeaderContentType     = "content-type"
	HeaderCorrelationID   = "correlation-id"
	HeaderCausationID     = "causation-id"
	HeaderRetryAttempts   = "retry-max-attempts"
	HeaderRetryDelay      = "retry-delay"
	HeaderRetryMultiplier = "retry-multiplier"
	HeaderRetryMaxDelay   = "retry-max-delay"
	HeaderRetryJitter     = "retry-jitter"
)

func encodeHeaders(env *envelope.Envelope, name, contentType string) map[string]string {
	h := map[string]string{
		HeaderType:        string(hierarchy.KeyOfValue(env.Message())),
		HeaderSerializer:  name,
		HeaderContentType: contentType,
	}
	if s, ok := envelope.Last[envelope.CorrelationStamp](env); ok {
		if s.CorrelationID != "" {
			h[HeaderCorrelationID] = s.CorrelationID
		}
		if s.CausationID != "" {
			h[HeaderCausationID] = s.CausationID
		}
	}
	if s, ok := envelope.Last[envelope.RetryStamp](env); ok {
		h[HeaderRetryAttempts] = strconv.Itoa(s.MaxAttempts)
		h[HeaderRetryDelay] = s.Delay.String()
		h[HeaderRetryMultiplier] = strconv.FormatFloat(s.Multiplier, 'g', -1, 64)
		if s.MaxDelay > 0 {
			h[HeaderRetryMaxDelay] = s.MaxDelay.String()
		}
		if s.Jitter > 0 {
			h[HeaderRetryJitter] = strconv.FormatFloat(s.Jitter, 'g', -1, 64)
		}
	}
	return h
}

func decodeStamps(h map[string]string, name string) []envelope.Stamp {
	stamps := []envelope.Stamp{envelope.SerializerStamp{Name: name, ContentType: h[HeaderContentType]}}
	if h[HeaderCorrelationID] != "" || h[HeaderCausationID] != "" {
		stamps = append(stamps, envelope.CorrelationStamp{
			CorrelationID: h[HeaderCorrelationID],
			CausationID:   h[HeaderCausationID],
		})
	}
	if n, err := strconv.Atoi(h[HeaderRetryAttempts]); err == nil {
		stamps = append(stamps, decodeRetry(h, n))
	}
	return stamps
}

// decodeRetry restores a RetryStamp. A missing multiplier means constant
// backoff.
func decodeRetry(h map[string]string, maxAttempts int) envelope.RetryStamp {
	s := envelope.RetryStamp{MaxAttempts: maxAttempts, Multiplier: 1}
	if d, err := time.ParseDuration(h[HeaderRetryDelay]); err == nil {
		s.Delay = d
	}
	if m, err := strconv.ParseFloat(h[HeaderRetryMultiplier], 64); err == nil {
		s.Multiplier = m
	}
	if d, err := time.ParseDuration(h[HeaderRetryMaxDelay]); err == nil {
		s.MaxDelay = d
	}
	if j, err := strconv.ParseFloat(h[HeaderRetryJitter], 64); err == nil {
		s.Jitter = j
	}
	return s
}
