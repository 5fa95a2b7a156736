// Package pubsub provides a generic publish/subscribe event system used to
// fan grid notifications and log entries out to observers.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	SelectionChangedEvent EventType = "selection_changed"
	EditingStartedEvent   EventType = "editing_started"
	EditingEndedEvent     EventType = "editing_ended"
	LogEntryEvent         EventType = "log_entry"
	FileChangedEvent      EventType = "file_changed"
	WatchErrorEvent       EventType = "watch_error"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
