package integration

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/db"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/device/schema"
	"github.com/urmzd/gryfd/pkg/gryf"
	"github.com/urmzd/gryfd/pkg/platform"
)

const eventBuffer = 64

// Registry holds every live entity. It implements device.Controller and
// device.EventSubscriber for the API, MCP and MQTT surfaces, and is the
// platform.StateWriter and platform.Restorer every adapter is attached to.
type Registry struct {
	validator *schema.Validator
	states    db.StateStore

	mu        sync.RWMutex
	entities  map[string]platform.Entity
	order     []string
	persisted map[string]device.State
	sinks     []device.Sink

	// Restorable states waiting for the store writer.
	pendingMu sync.Mutex
	pending   map[string]device.State
	wake      chan struct{}
	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	subscribersMu sync.Mutex
	subscribers   []chan device.Event

	connected func() bool
}

// NewRegistry creates an empty registry. states may be nil, in which case
// nothing is persisted or restored. Otherwise states of platform.Restoring
// entities are written to it in the background until Close.
func NewRegistry(validator *schema.Validator, states db.StateStore) *Registry {
	if validator == nil {
		validator = schema.NewValidator()
	}
	r := &Registry{
		validator: validator,
		states:    states,
		entities:  make(map[string]platform.Entity),
		persisted: make(map[string]device.State),
		pending:   make(map[string]device.State),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	if states != nil {
		go r.runStore()
	} else {
		close(r.stopped)
	}
	return r
}

// AddSink registers a consumer of entity changes. Entities already present
// are replayed to it.
func (r *Registry) AddSink(s device.Sink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	existing := make([]platform.Entity, 0, len(r.order))
	for _, id := range r.order {
		existing = append(existing, r.entities[id])
	}
	r.mu.Unlock()

	for _, e := range existing {
		s.EntityAdded(e.Info(), e.State())
	}
}

// RemoveSink stops delivering changes to s. Entities it was told about are
// not retracted.
func (r *Registry) RemoveSink(s device.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.sinks {
		if v == s {
			r.sinks = append(r.sinks[:i:i], r.sinks[i+1:]...)
			return
		}
	}
}

// Add registers e, announces it to the sinks and attaches it to its device.
func (r *Registry) Add(ctx context.Context, e platform.Entity) error {
	info := e.Info()

	r.mu.Lock()
	if _, ok := r.entities[info.ID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("entity %s already registered", info.ID)
	}
	r.entities[info.ID] = e
	r.order = append(r.order, info.ID)
	sinks := append([]device.Sink(nil), r.sinks...)
	r.mu.Unlock()

	for _, s := range sinks {
		s.EntityAdded(info, e.State())
	}
	r.publish(device.Event{Type: device.EventEntityAdded, EntityID: info.ID, Entity: &info})

	e.Attach(ctx, r, r)
	log.Debug().Str("entity", info.ID).Str("component", info.Component).Msg("Entity added")
	return nil
}

// Remove detaches and drops an entity.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entities[id]
	if ok {
		delete(r.entities, id)
		delete(r.persisted, id)
		for i, v := range r.order {
			if v == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	sinks := append([]device.Sink(nil), r.sinks...)
	r.mu.Unlock()
	if !ok {
		return
	}

	e.Detach()
	for _, s := range sinks {
		s.EntityRemoved(id)
	}
	r.publish(device.Event{Type: device.EventEntityRemoved, EntityID: id})
}

// RemoveEntry drops every entity owned by entryID.
func (r *Registry) RemoveEntry(entryID string) int {
	r.mu.RLock()
	var ids []string
	for _, id := range r.order {
		if r.entities[id].Info().EntryID == entryID {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Remove(id)
	}
	return len(ids)
}

// WriteState fans a state out to sinks and event subscribers. Changed
// states of restorable entities are queued for the store.
func (r *Registry) WriteState(id string, s device.State) {
	r.mu.Lock()
	e, ok := r.entities[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	persist := r.states != nil && restores(e) && !reflect.DeepEqual(r.persisted[id], s)
	if persist {
		r.persisted[id] = s
	}
	sinks := append([]device.Sink(nil), r.sinks...)
	r.mu.Unlock()

	for _, sink := range sinks {
		sink.StateChanged(id, s)
	}
	r.publish(device.Event{Type: device.EventStateChanged, EntityID: id, State: s})

	if persist {
		r.pendingMu.Lock()
		r.pending[id] = s
		r.pendingMu.Unlock()
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

func restores(e platform.Entity) bool {
	rs, ok := e.(platform.Restoring)
	return ok && rs.RestoresState()
}

// runStore writes queued states until Close, then writes what is left.
func (r *Registry) runStore() {
	defer close(r.stopped)
	for {
		select {
		case <-r.stop:
			r.flushStates()
			return
		case <-r.wake:
			r.flushStates()
		}
	}
}

func (r *Registry) flushStates() {
	r.pendingMu.Lock()
	batch := r.pending
	r.pending = make(map[string]device.State)
	r.pendingMu.Unlock()

	for id, s := range batch {
		if err := r.states.Put(context.Background(), id, s); err != nil {
			log.Warn().Err(err).Str("entity", id).Msg("Failed to persist state")
		}
	}
}

// RestoreState returns the last persisted state of id.
func (r *Registry) RestoreState(ctx context.Context, id string) (device.State, bool) {
	if r.states == nil {
		return nil, false
	}
	s, err := r.states.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, db.ErrStateNotFound) {
			log.Warn().Err(err).Str("entity", id).Msg("Failed to load saved state")
		}
		return nil, false
	}
	return s, true
}

// SetConnected installs the bus connectivity probe used by IsConnected.
func (r *Registry) SetConnected(fn func() bool) {
	r.mu.Lock()
	r.connected = fn
	r.mu.Unlock()
}

// --- device.Controller ---

func (r *Registry) ListEntities(_ context.Context) ([]device.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]device.Entity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entities[id].Info())
	}
	return out, nil
}

func (r *Registry) GetEntity(_ context.Context, id string) (*device.Entity, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	info := e.Info()
	return &info, nil
}

func (r *Registry) GetState(_ context.Context, id string) (device.State, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.State(), nil
}

func (r *Registry) SetState(ctx context.Context, id string, command map[string]any) (device.State, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	info := e.Info()
	if len(info.StateSchema) == 0 {
		return nil, fmt.Errorf("%w: %s is read-only", device.ErrUnsupported, id)
	}
	if err := r.validator.Validate(info.StateSchema, command); err != nil {
		return nil, fmt.Errorf("%w: %w", device.ErrValidation, err)
	}

	if err := e.Handle(ctx, command); err != nil {
		if errors.Is(err, gryf.ErrNotConnected) {
			return nil, fmt.Errorf("%w: %w", device.ErrNotConnected, err)
		}
		return nil, err
	}
	return e.State(), nil
}

func (r *Registry) IsConnected() bool {
	r.mu.RLock()
	fn := r.connected
	r.mu.RUnlock()
	return fn != nil && fn()
}

// Close detaches every entity and writes the states still queued for the
// store.
func (r *Registry) Close() {
	r.mu.RLock()
	ids := append([]string(nil), r.order...)
	r.mu.RUnlock()

	for _, id := range ids {
		r.Remove(id)
	}

	r.closeOnce.Do(func() { close(r.stop) })
	<-r.stopped
}

func (r *Registry) lookup(id string) (platform.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", device.ErrNotFound, id)
	}
	return e, nil
}

// --- device.EventSubscriber ---

func (r *Registry) Subscribe() chan device.Event {
	ch := make(chan device.Event, eventBuffer)
	r.subscribersMu.Lock()
	r.subscribers = append(r.subscribers, ch)
	r.subscribersMu.Unlock()
	return ch
}

func (r *Registry) Unsubscribe(ch chan device.Event) {
	r.subscribersMu.Lock()
	defer r.subscribersMu.Unlock()

	for i, sub := range r.subscribers {
		if sub == ch {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// publish delivers evt to every subscriber, dropping it for subscribers
// whose buffer is full.
func (r *Registry) publish(evt device.Event) {
	evt.Timestamp = time.Now()

	r.subscribersMu.Lock()
	defer r.subscribersMu.Unlock()

	for _, ch := range r.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
