package events

import (
	"context"
	"log/slog"
	"sync"
)

type registration struct {
	handler EventHandler
	types   map[string]struct{}
}

func (r registration) accepts(eventType string) bool {
	if len(r.types) == 0 {
		return true
	}
	_, ok := r.types[eventType]
	return ok
}

// InMemoryEventEmitter is an EventEmitter that dispatches events synchronously
// to handlers registered in the same process. It backs local development
// without Redis and tests that need the consumer side in-line.
type InMemoryEventEmitter struct {
	registrations []registration
	mu            sync.RWMutex
	logger        *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler adds a handler for the given event types.
// With no types the handler receives every event.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, eventTypes ...string) {
	reg := registration{handler: handler}
	if len(eventTypes) > 0 {
		reg.types = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			reg.types[t] = struct{}{}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.registrations = append(e.registrations, reg)
	e.logger.Debug("registered new event handler",
		"handler_count", len(e.registrations),
		"event_types", eventTypes)
}

// EmitEvent delivers the event to every matching handler.
// If any handler returns an error, the event will still be sent to all other handlers,
// and the first error encountered will be returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	regs := make([]registration, len(e.registrations))
	copy(regs, e.registrations)
	e.mu.RUnlock()

	var firstErr error
	delivered := 0
	for i, reg := range regs {
		if !reg.accepts(event.Type) {
			continue
		}
		delivered++
		if err := reg.handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if delivered == 0 {
		e.logger.Warn("no handlers registered for event",
			"event_id", event.ID,
			"event_type", event.Type)
	}
	return firstErr
}
