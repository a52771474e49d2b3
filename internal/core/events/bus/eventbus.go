package bus

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var ErrNilHandler = errors.New("bus: nil handler")

type simpleEvent struct {
	typeStr string
	source  string
	ts      time.Time
	data    any
}

func (e simpleEvent) Type() string         { return e.typeStr }
func (e simpleEvent) Source() string       { return e.source }
func (e simpleEvent) Timestamp() time.Time { return e.ts }
func (e simpleEvent) Data() any            { return e.data }

// NewEvent creates a basic Event stamped with the current time.
func NewEvent(typ, src string, data any) Event {
	return simpleEvent{typeStr: typ, source: src, ts: time.Now(), data: data}
}

type subscription struct {
	id        string
	eventType string
	handler   EventHandler
	active    atomic.Bool
	cancel    func()
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) EventType() string { return s.eventType }
func (s *subscription) IsActive() bool    { return s.active.Load() }
func (s *subscription) Cancel() error {
	if s.active.Swap(false) && s.cancel != nil {
		s.cancel()
	}
	return nil
}

type inMemoryBus struct {
	mu sync.RWMutex
	// eventType -> subID -> subscription
	handlers map[string]map[string]*subscription
}

// New creates an in-memory EventBus.
func New() EventBus {
	return &inMemoryBus{handlers: make(map[string]map[string]*subscription)}
}

func (b *inMemoryBus) Subscribe(eventType string, handler EventHandler) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]*subscription)
	}
	id := uuid.NewString()
	s := &subscription{id: id, eventType: eventType, handler: handler}
	s.active.Store(true)
	s.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.handlers[eventType]; ok {
			delete(m, id)
		}
	}
	b.handlers[eventType][id] = s
	return s, nil
}

func (b *inMemoryBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (b *inMemoryBus) Subscribers(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

func (b *inMemoryBus) Publish(event Event) error {
	b.mu.RLock()
	m := b.handlers[event.Type()]
	subs := make([]*subscription, 0, len(m))
	for _, s := range m {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	var all error
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}
	return all
}
