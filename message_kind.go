package busroute

import (
	"fmt"
	"strings"
)

// Command is a message that asks the system to change state.
// Implement IsCommand as an empty method to tag a type.
type Command interface {
	IsCommand()
}

// Query is a message that asks for an answer. Exactly one handler must
// produce a result.
type Query interface {
	IsQuery()
}

// Event is a message that announces something that happened. Events may
// have zero or more handlers.
type Event interface {
	IsEvent()
}

// Category classifies a message by the tag it implements.
type Category uint8

const (
	// CategoryUnknown is used for messages that implement no tag.
	CategoryUnknown Category = iota
	// CategoryCommand is used for messages implementing Command.
	CategoryCommand
	// CategoryQuery is used for messages implementing Query.
	CategoryQuery
	// CategoryEvent is used for messages implementing Event.
	CategoryEvent
)

// CategoryOf returns the category of msg. Tags are checked in the order
// Command, Query, Event; a message should implement exactly one.
func CategoryOf(msg any) Category {
	switch msg.(type) {
	case Command:
		return CategoryCommand
	case Query:
		return CategoryQuery
	case Event:
		return CategoryEvent
	default:
		return CategoryUnknown
	}
}

func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "command"
	case CategoryQuery:
		return "query"
	case CategoryEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Mode selects the transport a message is routed to.
type Mode uint8

const (
	// Sync routes the message to the synchronous bus.
	Sync Mode = iota
	// Async routes the message to the asynchronous bus.
	Async
)

func (m Mode) String() string {
	if m == Async {
		return "async"
	}
	return "sync"
}

// ParseMode parses "sync" or "async", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sync":
		return Sync, nil
	case "async":
		return Async, nil
	default:
		return Sync, fmt.Errorf("busroute: invalid dispatch mode %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
