// Package hass publishes entities to a Home Assistant style hub over MQTT
// discovery and turns command messages into entity commands.
package hass

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/mqtt"
)

// Broker is the part of the MQTT client the bridge needs.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Commander applies commands to entities.
type Commander interface {
	SetState(ctx context.Context, id string, command map[string]any) (device.State, error)
}

// Bridge implements device.Sink. Discovery is published synchronously;
// states are coalesced per entity and published by Run, so a slow broker
// never stalls the bus reader.
type Bridge struct {
	broker Broker
	topics Topics
	qos    byte
	ctrl   Commander

	mu       sync.Mutex
	entities map[string]device.Entity
	states   map[string]device.State
	pending  map[string]device.State
	wake     chan struct{}
}

// NewBridge creates a bridge. ctrl may be set later with SetCommander.
func NewBridge(broker Broker, topics Topics, qos byte, ctrl Commander) *Bridge {
	return &Bridge{
		broker:   broker,
		topics:   topics,
		qos:      qos,
		ctrl:     ctrl,
		entities: make(map[string]device.Entity),
		states:   make(map[string]device.State),
		pending:  make(map[string]device.State),
		wake:     make(chan struct{}, 1),
	}
}

// SetCommander sets the target of incoming commands.
func (b *Bridge) SetCommander(ctrl Commander) {
	b.mu.Lock()
	b.ctrl = ctrl
	b.mu.Unlock()
}

// Run subscribes to the command topics and publishes queued states until
// ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	err := b.broker.Subscribe(b.topics.Commands(), b.qos, func(topic string, payload []byte) error {
		return b.handleCommand(ctx, topic, payload)
	})
	if err != nil {
		return err
	}
	log.Info().Str("topic", b.topics.Commands()).Msg("Listening for hub commands")

	for {
		select {
		case <-ctx.Done():
			if err := b.broker.Unsubscribe(b.topics.Commands()); err != nil {
				log.Debug().Err(err).Msg("Unsubscribe on shutdown failed")
			}
			b.flush()
			return nil
		case <-b.wake:
			b.flush()
		}
	}
}

func (b *Bridge) EntityAdded(e device.Entity, s device.State) {
	b.mu.Lock()
	b.entities[e.ID] = e
	b.mu.Unlock()

	b.announce(e)
	b.StateChanged(e.ID, s)
}

// EntityRemoved clears the retained discovery and state messages.
func (b *Bridge) EntityRemoved(id string) {
	b.mu.Lock()
	e, ok := b.entities[id]
	delete(b.entities, id)
	delete(b.states, id)
	delete(b.pending, id)
	b.mu.Unlock()
	if !ok {
		return
	}

	topic, _ := Discovery(e, b.topics)
	b.publish(topic, nil)
	b.publish(b.topics.State(id), nil)
}

func (b *Bridge) StateChanged(id string, s device.State) {
	b.mu.Lock()
	b.states[id] = s
	b.pending[id] = s
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Republish announces every known entity again and re-queues its state.
// Called after the broker connection is re-established.
func (b *Bridge) Republish() {
	b.mu.Lock()
	entities := make([]device.Entity, 0, len(b.entities))
	for _, e := range b.entities {
		entities = append(entities, e)
	}
	b.mu.Unlock()

	for _, e := range entities {
		b.announce(e)
		b.mu.Lock()
		if s, ok := b.states[e.ID]; ok {
			b.pending[e.ID] = s
		}
		b.mu.Unlock()
	}

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) announce(e device.Entity) {
	topic, cfg := Discovery(e, b.topics)
	payload, err := json.Marshal(cfg)
	if err != nil {
		log.Error().Err(err).Str("entity", e.ID).Msg("Failed to encode discovery config")
		return
	}
	b.publish(topic, payload)
}

func (b *Bridge) flush() {
	b.mu.Lock()
	batch := b.pending
	b.pending = make(map[string]device.State)
	b.mu.Unlock()

	for id, s := range batch {
		payload, err := json.Marshal(s)
		if err != nil {
			log.Error().Err(err).Str("entity", id).Msg("Failed to encode state")
			continue
		}
		b.publish(b.topics.State(id), payload)
	}
}

func (b *Bridge) publish(topic string, payload []byte) {
	err := b.broker.Publish(topic, payload, b.qos, true)
	switch {
	case err == nil:
	case errors.Is(err, mqtt.ErrNotConnected):
		log.Debug().Str("topic", topic).Msg("Broker offline, message dropped")
	default:
		log.Warn().Err(err).Str("topic", topic).Msg("Publish failed")
	}
}

func (b *Bridge) handleCommand(ctx context.Context, topic string, payload []byte) error {
	id, cmd, err := b.topics.ParseCommand(topic, payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	ctrl := b.ctrl
	b.mu.Unlock()
	if ctrl == nil {
		return errors.New("no command target")
	}

	log.Debug().Str("entity", id).Interface("command", cmd).Msg("Hub command")
	_, err = ctrl.SetState(ctx, id, cmd)
	return err
}
