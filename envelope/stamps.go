package envelope

import (
	"strings"
	"time"
)

// TransportSelector marks stamps that already decide where a message goes.
// While one is present, no transport is chosen from configuration.
type TransportSelector interface {
	Stamp
	SelectsTransport()
}

// RetryStamp requests transport-level retries for a failed message.
// Backoff for attempt n (one-based) is Delay * Multiplier^(n-1), capped at
// MaxDelay when positive, with ±Jitter randomization.
type RetryStamp struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	Jitter      float64
}

func (RetryStamp) StampName() string { return "retry" }

// SerializerStamp selects the codec used when the message leaves the process.
type SerializerStamp struct {
	// Name identifies the codec, e.g. "json" or "cloudevents".
	Name string
	// ContentType is the media type of the encoded body.
	ContentType string
}

func (SerializerStamp) StampName() string { return "serializer" }

// CorrelationStamp carries correlation metadata across dispatches.
type CorrelationStamp struct {
	CorrelationID string
	CausationID   string
	// Generated is set when CorrelationID was created for this dispatch
	// instead of coming from the message or its sender. A generated id
	// yields to the id of the envelope being handled.
	Generated bool
}

func (CorrelationStamp) StampName() string { return "correlation" }

// TransportNamesStamp routes the message to the named transports.
type TransportNamesStamp struct {
	Names []string
}

// NewTransportNamesStamp creates a stamp for the given names.
func NewTransportNamesStamp(names ...string) TransportNamesStamp {
	return TransportNamesStamp{Names: append([]string(nil), names...)}
}

func (TransportNamesStamp) StampName() string { return "transport_names" }

func (TransportNamesStamp) SelectsTransport() {}

func (s TransportNamesStamp) String() string {
	return strings.Join(s.Names, ",")
}

// ReceivedStamp marks a message consumed from a transport. It must be handled
// where it is, never sent again.
type ReceivedStamp struct {
	Transport string
}

func (ReceivedStamp) StampName() string { return "received" }

func (ReceivedStamp) SelectsTransport() {}

// SentStamp records a transport the message was sent to.
type SentStamp struct {
	Transport string
}

func (SentStamp) StampName() string { return "sent" }

// DispatchAfterCurrentBusStamp defers the dispatch until the dispatch that is
// currently being handled has completed successfully.
type DispatchAfterCurrentBusStamp struct{}

func (DispatchAfterCurrentBusStamp) StampName() string { return "dispatch_after_current_bus" }

// HandledStamp records the result of a handler.
type HandledStamp struct {
	Result  any
	Handler string
}

func (HandledStamp) StampName() string { return "handled" }

// BusNameStamp records the bus an envelope was dispatched on.
type BusNameStamp struct {
	Name string
}

func (BusNameStamp) StampName() string { return "bus_name" }

// Verify stamp implementations.
var (
	_ Stamp             = RetryStamp{}
	_ Stamp             = SerializerStamp{}
	_ Stamp             = CorrelationStamp{}
	_ TransportSelector = TransportNamesStamp{}
	_ TransportSelector = ReceivedStamp{}
	_ Stamp             = SentStamp{}
	_ Stamp             = DispatchAfterCurrentBusStamp{}
	_ Stamp             = HandledStamp{}
	_ Stamp             = BusNameStamp{}
)
