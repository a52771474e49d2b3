package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Handlers subscribe by Event.Type() and are invoked synchronously in the
// publisher's goroutine. Handler errors are joined and returned from Publish.
// Handlers should be quick or offload heavy work.
type EventBus interface {
	// Publish delivers the event to every active subscriber of event.Type().
	Publish(event Event) error
	// Subscribe registers a handler for an event type.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the subscription. Nil is a no-op.
	Unsubscribe(Subscription) error
	// Subscribers returns the number of active handlers for eventType.
	Subscribers(eventType string) int
}

// Event is an immutable message transported by the bus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type EventHandler func(event Event) error

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}
