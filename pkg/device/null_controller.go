package device

import "context"

// NullController stands in when the API runs without an entity registry:
// it lists nothing and reports every bus as disconnected.
type NullController struct{}

// NewNullController creates a new NullController.
func NewNullController() *NullController {
	return &NullController{}
}

func (c *NullController) ListEntities(context.Context) ([]Entity, error) {
	return []Entity{}, nil
}

func (c *NullController) GetEntity(_ context.Context, id string) (*Entity, error) {
	return nil, ErrNotFound
}

func (c *NullController) GetState(_ context.Context, id string) (State, error) {
	return nil, ErrNotFound
}

func (c *NullController) SetState(_ context.Context, id string, _ map[string]any) (State, error) {
	return nil, ErrNotConnected
}

func (c *NullController) IsConnected() bool { return false }

func (c *NullController) Close() {}

// NullEventSubscriber hands out channels that never receive.
type NullEventSubscriber struct{}

// NewNullEventSubscriber creates a new NullEventSubscriber.
func NewNullEventSubscriber() *NullEventSubscriber {
	return &NullEventSubscriber{}
}

func (s *NullEventSubscriber) Subscribe() chan Event {
	return make(chan Event)
}

func (s *NullEventSubscriber) Unsubscribe(ch chan Event) {
	close(ch)
}
