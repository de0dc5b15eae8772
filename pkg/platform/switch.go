package platform

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
)

// Switch is a relay output exposed as a hub switch.
type Switch struct {
	base
	dev OutputDevice
}

// NewSwitch creates a switch adapter. The record's extra parameter selects
// the device class.
func NewSwitch(dc config.DeviceConfig, owner Owner, dev OutputDevice) *Switch {
	info := deviceInfo(device.ComponentSwitch, config.PlatformSwitch, dc, owner)
	info.DeviceClass = config.SwitchClass(dc.ExtraString())
	info.StateSchema = switchSchema
	return &Switch{
		base: newBase(info, device.State{"state": device.StateOff}),
		dev:  dev,
	}
}

func (s *Switch) Attach(_ context.Context, w StateWriter, _ Restorer) {
	s.attach(w, func() func() {
		return s.dev.Subscribe(func(on bool) {
			s.update(func(st device.State) { st["state"] = onOff(on) })
		})
	})
}

func (s *Switch) Handle(ctx context.Context, cmd map[string]any) error {
	switch v, _ := stringArg(cmd, "state"); v {
	case device.StateOff:
		return s.dev.TurnOff(ctx)
	case "TOGGLE":
		return s.dev.Toggle(ctx)
	default:
		return s.dev.TurnOn(ctx)
	}
}

// ResetHold is how long the reset switch shows on after a reset.
const ResetHold = 2 * time.Second

// ResetSwitch resets every bus module when turned on. It shows on for
// ResetHold and then drops back to off.
type ResetSwitch struct {
	base
	dev  ResetDevice
	hold time.Duration

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewResetSwitch creates the bus reset switch for owner.
func NewResetSwitch(owner Owner, dev ResetDevice) *ResetSwitch {
	info := device.Entity{
		ID:          UniqueID(owner.Port, "reset"),
		Name:        "Gryf RST",
		Component:   device.ComponentSwitch,
		Kind:        "reset",
		EntryID:     owner.EntryID,
		DeviceClass: config.DefaultSwitchClass,
		Icon:        "mdi:restart",
		Device:      owner.Device,
		StateSchema: switchSchema,
	}
	return &ResetSwitch{
		base: newBase(info, device.State{"state": device.StateOff}),
		dev:  dev,
		hold: ResetHold,
	}
}

func (r *ResetSwitch) Attach(_ context.Context, w StateWriter, _ Restorer) {
	r.attach(w, nil)
}

// Handle resets on turn on and toggle. Turn off does nothing.
func (r *ResetSwitch) Handle(ctx context.Context, cmd map[string]any) error {
	switch v, _ := stringArg(cmd, "state"); v {
	case device.StateOff:
		return nil
	case "TOGGLE":
		return r.dev.ResetAll(ctx)
	}

	if err := r.dev.ResetAll(ctx); err != nil {
		return err
	}
	r.update(func(s device.State) { s["state"] = device.StateOn })

	r.timerMu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.hold, func() {
		r.update(func(s device.State) { s["state"] = device.StateOff })
	})
	r.timerMu.Unlock()

	log.Info().Str("entity", r.info.ID).Msg("Bus reset requested")
	return nil
}

func (r *ResetSwitch) Detach() {
	r.timerMu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timerMu.Unlock()
	r.base.Detach()
}
