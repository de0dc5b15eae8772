package gryf

import (
	"context"

	"github.com/rs/zerolog/log"
)

// device holds what every handle needs: a name and a bus address.
type device struct {
	name   string
	module int
	pin    int
	api    *API
}

// Name returns the configured device name.
func (d *device) Name() string { return d.name }

// Module returns the bus module number.
func (d *device) Module() int { return d.module }

// Pin returns the pin within the module.
func (d *device) Pin() int { return d.pin }

// Output is a relay output.
type Output struct {
	device
}

// NewOutput creates an output handle on module/pin.
func NewOutput(name string, module, pin int, api *API) *Output {
	return &Output{device{name: name, module: module, pin: pin, api: api}}
}

func (o *Output) TurnOn(ctx context.Context) error  { return o.set(ctx, OutputOn) }
func (o *Output) TurnOff(ctx context.Context) error { return o.set(ctx, OutputOff) }
func (o *Output) Toggle(ctx context.Context) error  { return o.set(ctx, OutputToggle) }

func (o *Output) set(ctx context.Context, cmd OutputCommand) error {
	line, err := EncodeSetOut(o.module, o.pin, cmd)
	if err != nil {
		return err
	}
	return o.api.Send(ctx, line)
}

// Subscribe calls cb with the output state from every O frame of the module.
func (o *Output) Subscribe(cb func(on bool)) func() {
	return o.api.Subscribe(FuncOutput, o.module, func(f Frame) {
		if v, ok := f.Value(o.pin); ok {
			cb(v != 0)
		}
	})
}

// PWM is a dimmer channel with levels 0..100.
type PWM struct {
	device
}

// NewPWM creates a PWM handle on module/pin.
func NewPWM(name string, module, pin int, api *API) *PWM {
	return &PWM{device{name: name, module: module, pin: pin, api: api}}
}

// SetLevel sets the channel level, clamped to 0..100.
func (p *PWM) SetLevel(ctx context.Context, level int) error {
	line, err := EncodeSetLED(p.module, p.pin, level)
	if err != nil {
		return err
	}
	return p.api.Send(ctx, line)
}

func (p *PWM) TurnOn(ctx context.Context) error  { return p.SetLevel(ctx, 100) }
func (p *PWM) TurnOff(ctx context.Context) error { return p.SetLevel(ctx, 0) }

// Subscribe calls cb with the level from LED frames for this pin.
func (p *PWM) Subscribe(cb func(level int)) func() {
	return p.api.Subscribe(FuncPWM, p.module, func(f Frame) {
		if f.Pin() == p.pin && len(f.Values) > 1 {
			cb(f.Values[1])
		}
	})
}

// Input is a digital input. Subscribers see InputReleased/InputPressed from
// state frames and InputShortPress/InputLongPress from press events.
type Input struct {
	device
}

// NewInput creates an input handle on module/pin.
func NewInput(name string, module, pin int, api *API) *Input {
	return &Input{device{name: name, module: module, pin: pin, api: api}}
}

func (i *Input) Subscribe(cb func(state int)) func() {
	unsubState := i.api.Subscribe(FuncInput, i.module, func(f Frame) {
		if v, ok := f.Value(i.pin); ok {
			cb(v)
		}
	})
	unsubShort := i.api.Subscribe(FuncPressShort, i.module, func(f Frame) {
		if f.Pin() == i.pin {
			cb(InputShortPress)
		}
	})
	unsubLong := i.api.Subscribe(FuncPressLong, i.module, func(f Frame) {
		if f.Pin() == i.pin {
			cb(InputLongPress)
		}
	})
	return func() {
		unsubState()
		unsubShort()
		unsubLong()
	}
}

// Temperature is a temperature sensor.
type Temperature struct {
	device
}

// NewTemperature creates a temperature sensor handle on module/pin.
func NewTemperature(name string, module, pin int, api *API) *Temperature {
	return &Temperature{device{name: name, module: module, pin: pin, api: api}}
}

// Subscribe calls cb with each reading in °C.
func (t *Temperature) Subscribe(cb func(celsius float64)) func() {
	return t.api.Subscribe(FuncTemperature, t.module, func(f Frame) {
		if f.Pin() != t.pin {
			return
		}
		v, err := f.Temperature()
		if err != nil {
			log.Debug().Err(err).Msg("Bad temperature frame")
			return
		}
		cb(v)
	})
}

// Cover is a shutter driver with a fixed travel time.
type Cover struct {
	device
	seconds int
}

// NewCover creates a cover handle on module/pin. seconds is the full travel time.
func NewCover(name string, module, pin, seconds int, api *API) *Cover {
	return &Cover{device: device{name: name, module: module, pin: pin, api: api}, seconds: seconds}
}

// TurnOn opens the cover.
func (c *Cover) TurnOn(ctx context.Context) error { return c.move(ctx, CoverOpen) }

// TurnOff closes the cover.
func (c *Cover) TurnOff(ctx context.Context) error { return c.move(ctx, CoverClose) }

// Toggle steps the cover: stop if moving, otherwise reverse the last direction.
func (c *Cover) Toggle(ctx context.Context) error { return c.move(ctx, CoverStep) }

func (c *Cover) Stop(ctx context.Context) error { return c.move(ctx, CoverStop) }

func (c *Cover) move(ctx context.Context, cmd CoverCommand) error {
	line, err := EncodeSetRol(c.module, c.pin, c.seconds, cmd)
	if err != nil {
		return err
	}
	return c.api.Send(ctx, line)
}

// Subscribe calls cb with the pin's motion state from R frames.
func (c *Cover) Subscribe(cb func(state int)) func() {
	return c.api.Subscribe(FuncCover, c.module, func(f Frame) {
		if v, ok := f.Value(c.pin); ok {
			cb(v)
		}
	})
}

// Resetter resets bus modules.
type Resetter struct {
	api *API
}

// NewResetter creates a handle that resets the whole bus.
func NewResetter(api *API) *Resetter {
	return &Resetter{api: api}
}

// ResetAll resets every module on the bus.
func (r *Resetter) ResetAll(ctx context.Context) error {
	return r.api.Reset(ctx, 0, true)
}

// Line observes raw bus traffic in one direction.
type Line struct {
	name string
	dir  Direction
	api  *API
}

// NewLine creates a raw line observer handle.
func NewLine(name string, dir Direction, api *API) *Line {
	return &Line{name: name, dir: dir, api: api}
}

func (l *Line) Name() string { return l.name }

// Direction returns which way the observed lines travel.
func (l *Line) Direction() Direction { return l.dir }

// Subscribe calls cb with every raw line.
func (l *Line) Subscribe(cb func(line string)) func() {
	return l.api.OnLine(l.dir, cb)
}
