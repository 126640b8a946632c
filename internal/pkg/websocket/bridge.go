package websocket

import (
	"encoding/json"
	"sync"

	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/logger"
)

// Handler receives the payload of one emitted event
type Handler func(payload interface{})

type subscription struct {
	id      int
	handler Handler
}

// Bridge is an in-process publish/subscribe dispatcher. Emitting an event
// synchronously invokes every registered handler in registration order.
// There is no queuing and no replay for late subscribers; the bridge holds
// no domain state.
type Bridge struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string][]subscription
}

// NewBridge creates an empty dispatcher
func NewBridge() *Bridge {
	return &Bridge{
		handlers: make(map[string][]subscription),
	}
}

// On registers a handler for the given event name and returns a function
// that removes exactly that handler.
func (b *Bridge) On(event string, handler Handler) (off func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[event]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[event] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Off removes every handler registered for the given event name
func (b *Bridge) Off(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, event)
}

// Emit synchronously invokes every handler registered for the event,
// in registration order
func (b *Bridge) Emit(event string, payload interface{}) {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[event]))
	copy(subs, b.handlers[event])
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(payload)
	}
}

// Reset removes all handlers for all events
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]subscription)
}

// OnTyped registers a handler for a single payload type. Raw JSON payloads
// are decoded into T before the handler runs; payloads that fail to decode
// are logged and dropped.
func OnTyped[T any](b *Bridge, event string, handler func(T)) (off func()) {
	return b.On(event, func(payload interface{}) {
		if typed, ok := payload.(T); ok {
			handler(typed)
			return
		}

		var raw []byte
		switch v := payload.(type) {
		case json.RawMessage:
			raw = v
		case []byte:
			raw = v
		default:
			encoded, err := json.Marshal(payload)
			if err != nil {
				logger.Warn("dropping event payload of unexpected type",
					logger.String("event", event),
					logger.Err(err))
				return
			}
			raw = encoded
		}

		var typed T
		if err := json.Unmarshal(raw, &typed); err != nil {
			logger.Warn("dropping undecodable event payload",
				logger.String("event", event),
				logger.Err(err))
			return
		}
		handler(typed)
	})
}
