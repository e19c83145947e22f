// Package eventbus is the in-process signal hub that decouples CRUD actions
// and login events from the dashboard widgets consuming them. State lives for
// one session only; cross-tab consumers go through the storage signal instead.
package eventbus

import (
	"fmt"
	"sync"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
)

// Handler receives the payload passed to Emit.
type Handler func(payload map[string]interface{})

// HandlerID identifies a registered handler so it can be removed later.
// Function values are not comparable in Go, so Off works on the id.
type HandlerID uint64

type registration struct {
	id HandlerID
	fn Handler
}

// Bus dispatches synchronously, in registration order. A handler that panics
// is recovered and logged; later handlers still run.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]registration
	nextID   HandlerID
	logger   logger.ILogger
}

func NewBus(log logger.ILogger) *Bus {
	return &Bus{
		handlers: make(map[string][]registration),
		logger:   log,
	}
}

// On registers a handler for an event name. Multiple handlers per name are
// allowed and invoked in registration order.
func (b *Bus) On(event string, fn Handler) HandlerID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], registration{id: id, fn: fn})
	return id
}

// Off removes a previously registered handler. Unknown ids are a no-op.
func (b *Bus) Off(event string, id HandlerID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[event]
	for i, r := range regs {
		if r.id == id {
			b.handlers[event] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(b.handlers[event]) == 0 {
		delete(b.handlers, event)
	}
}

// Emit synchronously invokes all handlers registered for the event name.
func (b *Bus) Emit(event string, payload map[string]interface{}) {
	b.mu.Lock()
	regs := make([]registration, len(b.handlers[event]))
	copy(regs, b.handlers[event])
	b.mu.Unlock()

	for _, r := range regs {
		b.dispatch(event, r, payload)
	}
}

func (b *Bus) dispatch(event string, r registration, payload map[string]interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("EventBus", fmt.Sprintf("Handler panicked for event %s", event), map[string]interface{}{
				"handler_id": r.id,
				"error":      fmt.Sprintf("%v", rec),
			})
		}
	}()
	r.fn(payload)
}
