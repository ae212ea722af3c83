package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow/internal/events"
)

// MockEventEmitter implements events.EventEmitter for testing.
// It records every attempted event, including the ones it fails.
type MockEventEmitter struct {
	// EmitEventFn allows test cases to decide the outcome per event.
	// When nil, Err is returned for every event.
	EmitEventFn func(ctx context.Context, event *events.Event) error

	// Err is the default result of EmitEvent
	Err error

	mu       sync.Mutex
	attempts []*events.Event
}

var _ events.EventEmitter = (*MockEventEmitter)(nil)

// EmitEvent implements the events.EventEmitter interface
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	m.mu.Lock()
	m.attempts = append(m.attempts, event)
	m.mu.Unlock()

	if m.EmitEventFn != nil {
		return m.EmitEventFn(ctx, event)
	}
	return m.Err
}

// Attempts returns every event passed to EmitEvent, in call order.
func (m *MockEventEmitter) Attempts() []*events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.Event(nil), m.attempts...)
}

// StatusChanges decodes every attempted task-status-update event.
// Events of other types are skipped.
func (m *MockEventEmitter) StatusChanges() ([]events.TaskStatusChanged, error) {
	var out []events.TaskStatusChanged
	for _, e := range m.Attempts() {
		if e.Type != events.TypeTaskStatusUpdate {
			continue
		}
		var p events.TaskStatusChanged
		if err := e.UnmarshalPayload(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// FailFor returns an EmitEventFn that fails with err for events about any of ids.
// The event payload must carry a taskId.
func FailFor(err error, ids ...uuid.UUID) func(context.Context, *events.Event) error {
	failing := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		failing[id] = struct{}{}
	}
	return func(ctx context.Context, event *events.Event) error {
		var p struct {
			TaskID uuid.UUID `json:"taskId"`
		}
		if decodeErr := event.UnmarshalPayload(&p); decodeErr != nil {
			return decodeErr
		}
		if _, ok := failing[p.TaskID]; ok {
			return err
		}
		return nil
	}
}
