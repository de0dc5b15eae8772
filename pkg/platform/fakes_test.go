package platform

import (
	"context"
	"sync"

	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
)

// calls records device method invocations.
type calls struct {
	mu  sync.Mutex
	log []string
}

func (c *calls) add(s string) {
	c.mu.Lock()
	c.log = append(c.log, s)
	c.mu.Unlock()
}

func (c *calls) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

// callback holds the single subscriber of a fake device.
type callback[T any] struct {
	mu sync.Mutex
	cb func(T)
}

func (c *callback[T]) Subscribe(cb func(T)) func() {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.cb = nil
		c.mu.Unlock()
	}
}

func (c *callback[T]) fire(v T) {
	c.mu.Lock()
	cb := c.cb
	c.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

type fakeOutput struct {
	calls
	callback[bool]
}

func (f *fakeOutput) TurnOn(context.Context) error  { f.add("on"); return nil }
func (f *fakeOutput) TurnOff(context.Context) error { f.add("off"); return nil }
func (f *fakeOutput) Toggle(context.Context) error  { f.add("toggle"); return nil }

type fakePWM struct {
	callback[int]

	levelsMu sync.Mutex
	levels   []int
}

func (f *fakePWM) SetLevel(_ context.Context, level int) error {
	f.levelsMu.Lock()
	f.levels = append(f.levels, level)
	f.levelsMu.Unlock()
	return nil
}

func (f *fakePWM) got() []int {
	f.levelsMu.Lock()
	defer f.levelsMu.Unlock()
	return append([]int(nil), f.levels...)
}

type fakeCover struct {
	calls
	callback[int]
}

func (f *fakeCover) TurnOn(context.Context) error  { f.add("open"); return nil }
func (f *fakeCover) TurnOff(context.Context) error { f.add("close"); return nil }
func (f *fakeCover) Toggle(context.Context) error  { f.add("step"); return nil }
func (f *fakeCover) Stop(context.Context) error    { f.add("stop"); return nil }

type fakeThermostat struct {
	callback[gryf.ThermostatState]

	mu           sync.Mutex
	enabled      []bool
	differential int
	target       float64
	closed       bool
}

func (f *fakeThermostat) Enable(_ context.Context, enabled bool) error {
	f.mu.Lock()
	f.enabled = append(f.enabled, enabled)
	f.mu.Unlock()
	return nil
}

func (f *fakeThermostat) ChangeDifferential(d int) {
	f.mu.Lock()
	f.differential = d
	f.mu.Unlock()
}

func (f *fakeThermostat) SetTargetTemperature(_ context.Context, t float64) error {
	f.mu.Lock()
	f.target = t
	f.mu.Unlock()
	return nil
}

type fakeReset struct {
	calls
}

func (f *fakeReset) ResetAll(context.Context) error { f.add("reset"); return nil }

type fakeInput struct{ callback[int] }

type fakeTemperature struct{ callback[float64] }

type fakeLine struct{ callback[string] }

// recorder is a StateWriter keeping every published state.
type recorder struct {
	mu     sync.Mutex
	states []device.State
}

func (r *recorder) WriteState(_ string, s device.State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) last() device.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

type mapRestorer map[string]device.State

func (m mapRestorer) RestoreState(_ context.Context, id string) (device.State, bool) {
	s, ok := m[id]
	return s, ok
}

var testOwner = Owner{
	Port:    "/dev/ttyUSB0",
	EntryID: "entry-1",
	Device:  device.DeviceInfo{Name: "Gryf Smart /dev/ttyUSB0"},
}

func (f *fakeThermostat) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
