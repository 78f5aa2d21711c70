package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is the slice of *nats.Conn the forwarder needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSForwarder republishes lifecycle events on <prefix>.ticket.<event>.
type NATSForwarder struct {
	publisher Publisher
	prefix    string
}

// NewNATSForwarder builds a forwarder.
func NewNATSForwarder(publisher Publisher, prefix string) *NATSForwarder {
	return &NATSForwarder{publisher: publisher, prefix: prefix}
}

// Subject returns the subject an event type is published on.
func (f *NATSForwarder) Subject(eventType EventType) string {
	return fmt.Sprintf("%s.ticket.%s", f.prefix, eventType)
}

// Register subscribes the forwarder to every ticket event.
func (f *NATSForwarder) Register(dispatcher Dispatcher) {
	if f == nil || f.publisher == nil || dispatcher == nil {
		return
	}
	for _, eventType := range AllTicketEvents {
		dispatcher.Subscribe(eventType, f.forward)
	}
}

func (f *NATSForwarder) forward(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}
	return f.publisher.Publish(f.Subject(event.Type), data)
}
