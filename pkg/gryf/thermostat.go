package gryf

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// ThermostatState is delivered to thermostat subscribers on every reading.
type ThermostatState struct {
	Temperature float64
	Output      bool
}

// DefaultTargetTemperature is the set point of a new thermostat.
const DefaultTargetTemperature = 21.0

// Thermostat is a software thermostat: it drives an output from a
// temperature sensor. Heating switches on below
// target - differential - hysteresis/10 and off at target + hysteresis/10.
// hysteresis is in tenths of a degree, differential in whole degrees.
type Thermostat struct {
	name string
	out  *Output
	temp *Temperature

	mu           sync.Mutex
	enabled      bool
	configured   bool
	target       float64
	differential int
	hysteresis   int
	current      float64
	hasReading   bool
	outputOn     bool
	subs         map[int]func(ThermostatState)
	nextID       int

	unsubscribe []func()
}

// NewThermostat creates a thermostat driving outModule/outPin from the sensor
// on tempModule/tempPin. It starts disabled.
func NewThermostat(name string, outModule, outPin, tempModule, tempPin, hysteresis int, api *API) *Thermostat {
	t := &Thermostat{
		name:       name,
		out:        NewOutput(name, outModule, outPin, api),
		temp:       NewTemperature(name, tempModule, tempPin, api),
		target:     DefaultTargetTemperature,
		hysteresis: max(hysteresis, 0),
		subs:       make(map[int]func(ThermostatState)),
	}
	t.unsubscribe = []func(){
		t.temp.Subscribe(t.onTemperature),
		t.out.Subscribe(t.onOutput),
	}
	return t
}

func (t *Thermostat) Name() string { return t.name }

// Enable turns regulation on or off. Disabling switches the output off.
// Repeating the current setting does nothing.
func (t *Thermostat) Enable(ctx context.Context, enabled bool) error {
	t.mu.Lock()
	if t.configured && t.enabled == enabled {
		t.mu.Unlock()
		return nil
	}
	t.configured = true
	t.enabled = enabled
	t.mu.Unlock()

	if !enabled {
		return t.out.TurnOff(ctx)
	}
	return t.regulate(ctx)
}

// ChangeDifferential sets how far below target the room may cool before
// heating restarts.
func (t *Thermostat) ChangeDifferential(differential int) {
	t.mu.Lock()
	t.differential = max(differential, 0)
	t.mu.Unlock()
}

// SetTargetTemperature changes the set point and regulates immediately.
func (t *Thermostat) SetTargetTemperature(ctx context.Context, target float64) error {
	t.mu.Lock()
	t.target = target
	t.mu.Unlock()
	return t.regulate(ctx)
}

// Subscribe calls cb with the temperature and output state on every change.
func (t *Thermostat) Subscribe(cb func(ThermostatState)) func() {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs[id] = cb
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Close detaches the thermostat from the bus.
func (t *Thermostat) Close() {
	for _, u := range t.unsubscribe {
		u()
	}
}

func (t *Thermostat) onTemperature(celsius float64) {
	t.mu.Lock()
	t.current = celsius
	t.hasReading = true
	t.mu.Unlock()

	if err := t.regulate(context.Background()); err != nil {
		log.Warn().Err(err).Str("thermostat", t.name).Msg("Thermostat regulation failed")
	}
	t.notify()
}

func (t *Thermostat) onOutput(on bool) {
	t.mu.Lock()
	changed := t.outputOn != on
	t.outputOn = on
	t.mu.Unlock()

	if changed {
		t.notify()
	}
}

// regulate switches the output according to the last reading.
func (t *Thermostat) regulate(ctx context.Context) error {
	t.mu.Lock()
	if !t.enabled || !t.hasReading {
		t.mu.Unlock()
		return nil
	}
	band := float64(t.hysteresis) / 10
	low := t.target - float64(t.differential) - band
	high := t.target + band
	current, outputOn := t.current, t.outputOn
	t.mu.Unlock()

	switch {
	case current < low && !outputOn:
		return t.out.TurnOn(ctx)
	case current >= high && outputOn:
		return t.out.TurnOff(ctx)
	}
	return nil
}

func (t *Thermostat) notify() {
	t.mu.Lock()
	state := ThermostatState{Temperature: t.current, Output: t.outputOn}
	cbs := make([]func(ThermostatState), 0, len(t.subs))
	for _, cb := range t.subs {
		cbs = append(cbs, cb)
	}
	t.mu.Unlock()

	for _, cb := range cbs {
		cb(state)
	}
}
