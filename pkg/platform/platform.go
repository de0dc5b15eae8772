// Package platform holds one adapter per hub component. Each adapter pairs
// an entity description with a bus device handle: hub commands become device
// calls and device callbacks become entity state.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
)

// Entity is implemented by every adapter.
type Entity interface {
	// Info describes the entity.
	Info() device.Entity

	// State returns a copy of the current state.
	State() device.State

	// Handle applies a command that already passed schema validation.
	Handle(ctx context.Context, command map[string]any) error

	// Attach subscribes to the device and publishes through w. r may be nil.
	Attach(ctx context.Context, w StateWriter, r Restorer)

	// Detach drops the device subscription.
	Detach()
}

// StateWriter receives every state an entity publishes.
type StateWriter interface {
	WriteState(entityID string, state device.State)
}

// Restoring is implemented by entities that read their state back through
// a Restorer on Attach. Only their states are persisted.
type Restoring interface {
	RestoresState() bool
}

// Restorer returns the state an entity had before a restart.
type Restorer interface {
	RestoreState(ctx context.Context, entityID string) (device.State, bool)
}

// Device handle contracts. The gryf package types satisfy them; tests use fakes.
type (
	Switchable interface {
		TurnOn(ctx context.Context) error
		TurnOff(ctx context.Context) error
		Toggle(ctx context.Context) error
	}

	OutputDevice interface {
		Switchable
		Subscribe(cb func(on bool)) func()
	}

	PWMDevice interface {
		SetLevel(ctx context.Context, level int) error
		Subscribe(cb func(level int)) func()
	}

	CoverDevice interface {
		Switchable
		Stop(ctx context.Context) error
		Subscribe(cb func(state int)) func()
	}

	ThermostatDevice interface {
		Enable(ctx context.Context, enabled bool) error
		ChangeDifferential(differential int)
		SetTargetTemperature(ctx context.Context, target float64) error
		Subscribe(cb func(gryf.ThermostatState)) func()
	}

	ResetDevice interface {
		ResetAll(ctx context.Context) error
	}

	InputDevice interface {
		Subscribe(cb func(state int)) func()
	}

	TemperatureDevice interface {
		Subscribe(cb func(celsius float64)) func()
	}

	LineDevice interface {
		Subscribe(cb func(line string)) func()
	}
)

// base carries what every adapter shares: its description, its state and
// the writer it publishes to.
type base struct {
	info device.Entity

	mu     sync.Mutex
	state  device.State
	writer StateWriter
	unsub  func()
}

func newBase(info device.Entity, initial device.State) base {
	if initial == nil {
		initial = device.State{}
	}
	return base{info: info, state: initial}
}

func (b *base) Info() device.Entity { return b.info }

func (b *base) State() device.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Clone()
}

// update applies fn to the state under the lock and publishes the result.
func (b *base) update(fn func(s device.State)) {
	b.mu.Lock()
	fn(b.state)
	snapshot := b.state.Clone()
	w := b.writer
	b.mu.Unlock()

	if w != nil {
		w.WriteState(b.info.ID, snapshot)
	}
}

// attach stores the writer, runs subscribe and publishes the initial state.
func (b *base) attach(w StateWriter, subscribe func() func()) {
	b.mu.Lock()
	b.writer = w
	b.mu.Unlock()

	if subscribe != nil {
		unsub := subscribe()
		b.mu.Lock()
		b.unsub = unsub
		b.mu.Unlock()
	}
	b.update(func(device.State) {})
}

func (b *base) Detach() {
	b.mu.Lock()
	unsub := b.unsub
	b.unsub = nil
	b.writer = nil
	b.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// deviceInfo describes a configured device.
func deviceInfo(component string, kind config.Platform, dc config.DeviceConfig, owner Owner) device.Entity {
	return device.Entity{
		ID:        UniqueID(owner.Port, string(kind), strconv.Itoa(dc.ID)),
		Name:      dc.Name,
		Component: component,
		Kind:      string(kind),
		EntryID:   owner.EntryID,
		Address:   dc.ID,
		Device:    owner.Device,
	}
}

// Owner identifies the bus an entity belongs to.
type Owner struct {
	Port    string
	EntryID string
	Device  device.DeviceInfo
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// UniqueID builds a stable entity id from the bus port and entity parts.
func UniqueID(port string, parts ...string) string {
	segs := []string{config.Domain, Slug(port)}
	for _, p := range parts {
		segs = append(segs, Slug(p))
	}
	return strings.Join(segs, "_")
}

// Slug lower-cases s and collapses anything outside [a-z0-9] to '_'.
func Slug(s string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(s), "_"), "_")
}

func mustSchema(doc string) json.RawMessage {
	if !json.Valid([]byte(doc)) {
		panic("invalid state schema: " + doc)
	}
	return json.RawMessage(doc)
}

func stringArg(cmd map[string]any, key string) (string, bool) {
	v, ok := cmd[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return strings.ToUpper(strings.TrimSpace(s)), ok
}

func numberArg(cmd map[string]any, key string) (float64, bool, error) {
	v, ok := cmd[key]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case json.Number:
		f, err := n.Float64()
		return f, true, err
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, true, err
	default:
		return 0, true, fmt.Errorf("%w: %s must be a number", device.ErrValidation, key)
	}
}

func onOff(on bool) string {
	if on {
		return device.StateOn
	}
	return device.StateOff
}
