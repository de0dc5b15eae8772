package platform

import (
	"context"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
)

// BinarySensor is a digital input reported as on/off, optionally negated.
type BinarySensor struct {
	base
	dev      InputDevice
	negation bool
}

// NewBinarySensor creates a binary sensor adapter.
func NewBinarySensor(dc config.DeviceConfig, owner Owner, dev InputDevice) *BinarySensor {
	info := deviceInfo(device.ComponentBinarySensor, config.PlatformBinarySensor, dc, owner)
	info.DeviceClass = config.BinarySensorClass(dc.ExtraString())
	return &BinarySensor{
		base:     newBase(info, device.State{"state": onOff(dc.Negation)}),
		dev:      dev,
		negation: dc.Negation,
	}
}

func (b *BinarySensor) Attach(_ context.Context, w StateWriter, _ Restorer) {
	b.attach(w, func() func() {
		return b.dev.Subscribe(func(state int) {
			// Press events carry no level.
			if state != gryf.InputReleased && state != gryf.InputPressed {
				return
			}
			on := state == gryf.InputPressed
			if b.negation {
				on = !on
			}
			b.update(func(s device.State) { s["state"] = onOff(on) })
		})
	})
}

func (b *BinarySensor) Handle(context.Context, map[string]any) error {
	return device.ErrUnsupported
}
