package platform

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
)

const (
	iconLightOn  = "mdi:lightbulb"
	iconLightOff = "mdi:lightbulb-off"
)

// Light is an on/off light driven by a relay output. It restores its last
// on/off state when attached.
type Light struct {
	base
	dev OutputDevice
}

// NewLight creates a light adapter.
func NewLight(dc config.DeviceConfig, owner Owner, dev OutputDevice) *Light {
	info := deviceInfo(device.ComponentLight, config.PlatformLight, dc, owner)
	info.Icon = iconLightOff
	info.StateSchema = onOffSchema
	return &Light{
		base: newBase(info, device.State{"state": device.StateOff, "icon": iconLightOff}),
		dev:  dev,
	}
}

func (l *Light) Attach(ctx context.Context, w StateWriter, r Restorer) {
	if r != nil {
		if last, ok := r.RestoreState(ctx, l.info.ID); ok {
			if s, ok := last["state"].(string); ok {
				l.mu.Lock()
				l.setOn(l.state, s == device.StateOn)
				l.mu.Unlock()
				log.Debug().Str("entity", l.info.ID).Str("state", s).Msg("Restored light state")
			}
		}
	}
	l.attach(w, func() func() { return l.dev.Subscribe(l.onUpdate) })
}

func (l *Light) RestoresState() bool { return true }

func (l *Light) Handle(ctx context.Context, cmd map[string]any) error {
	s, _ := stringArg(cmd, "state")
	if s == device.StateOff {
		return l.dev.TurnOff(ctx)
	}
	return l.dev.TurnOn(ctx)
}

func (l *Light) onUpdate(on bool) {
	l.update(func(s device.State) { l.setOn(s, on) })
}

func (l *Light) setOn(s device.State, on bool) {
	s["state"] = onOff(on)
	if on {
		s["icon"] = iconLightOn
	} else {
		s["icon"] = iconLightOff
	}
}

// PWMLight is a dimmable light on a PWM channel. Bus levels are 0..100,
// hub brightness is 0..255.
type PWMLight struct {
	base
	dev PWMDevice

	lastBrightness int
}

// NewPWMLight creates a dimmable light adapter.
func NewPWMLight(dc config.DeviceConfig, owner Owner, dev PWMDevice) *PWMLight {
	info := deviceInfo(device.ComponentLight, config.PlatformPWM, dc, owner)
	info.StateSchema = brightnessSchema
	return &PWMLight{
		base:           newBase(info, device.State{"state": device.StateOff, "brightness": 0}),
		dev:            dev,
		lastBrightness: 255,
	}
}

func (p *PWMLight) Attach(_ context.Context, w StateWriter, _ Restorer) {
	p.attach(w, func() func() { return p.dev.Subscribe(p.onUpdate) })
}

// Handle turns the channel on at the requested brightness, on at the last
// non-zero brightness, or off.
func (p *PWMLight) Handle(ctx context.Context, cmd map[string]any) error {
	if s, _ := stringArg(cmd, "state"); s == device.StateOff {
		return p.dev.SetLevel(ctx, 0)
	}

	b, ok, err := numberArg(cmd, "brightness")
	if err != nil {
		return err
	}
	if !ok {
		p.mu.Lock()
		last := p.lastBrightness
		p.mu.Unlock()
		return p.dev.SetLevel(ctx, BrightnessToLevel(last))
	}

	brightness := int(b)
	if err := p.dev.SetLevel(ctx, BrightnessToLevel(brightness)); err != nil {
		return err
	}
	if brightness != 0 {
		p.mu.Lock()
		p.lastBrightness = brightness
		p.mu.Unlock()
	}
	return nil
}

func (p *PWMLight) onUpdate(level int) {
	p.update(func(s device.State) {
		s["state"] = onOff(level != 0)
		s["brightness"] = LevelToBrightness(level)
	})
}

// LevelToBrightness maps a bus level 0..100 onto hub brightness 1..255.
func LevelToBrightness(level int) int {
	return int(math.Ceil(float64(level+1) * 255 / 101))
}

// BrightnessToLevel maps hub brightness 0..255 onto a bus level 0..100.
func BrightnessToLevel(brightness int) int {
	return max(int(float64(brightness)*101/255 - 1), 0)
}
