package manager

import "github.com/google/uuid"

// Event represents a manager lifecycle event.
type Event struct {
	// Unique event ID, for correlating logs and subscribers.
	ID     string
	Name   string
	Model  string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// publish stamps an ID on the event and forwards it.
func (m *Manager) publish(name, model string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	m.publisher.Publish(Event{ID: uuid.NewString(), Name: name, Model: model, Fields: fields})
}
