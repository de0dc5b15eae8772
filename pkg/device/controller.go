package device

import "context"

// Controller is the entity surface the HTTP API, MCP tools and MQTT
// command handlers work against.
type Controller interface {
	// ListEntities returns every registered entity
	ListEntities(ctx context.Context) ([]Entity, error)

	// GetEntity returns a single entity by ID
	GetEntity(ctx context.Context, id string) (*Entity, error)

	// GetState returns the last known state of an entity
	GetState(ctx context.Context, id string) (State, error)

	// SetState validates a command against the entity's state schema and
	// forwards it to the bus. Returns the state after the command.
	SetState(ctx context.Context, id string, command map[string]any) (State, error)

	// IsConnected returns true if at least one bus link is up
	IsConnected() bool

	// Close tears down every entity and bus link
	Close()
}

// EventSubscriber defines the interface for subscribing to entity events
type EventSubscriber interface {
	// Subscribe returns a channel that receives entity events
	Subscribe() chan Event

	// Unsubscribe removes a subscription
	Unsubscribe(ch chan Event)
}

// Sink receives entity lifecycle and state changes synchronously, in order.
// Implementations must not block for long: calls run on the bus reader.
type Sink interface {
	EntityAdded(e Entity, s State)
	EntityRemoved(id string)
	StateChanged(id string, s State)
}
