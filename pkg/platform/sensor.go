package platform

import (
	"context"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
)

// sensor is the read-only part shared by every sensor adapter.
type sensor struct {
	base
}

func (s *sensor) Handle(context.Context, map[string]any) error {
	return device.ErrUnsupported
}

// InputSensor reports a digital input as 0 released, 1 pressed, 2 short
// press, 3 long press.
type InputSensor struct {
	sensor
	dev InputDevice
}

// NewInputSensor creates an input sensor adapter.
func NewInputSensor(dc config.DeviceConfig, owner Owner, dev InputDevice) *InputSensor {
	info := deviceInfo(device.ComponentSensor, config.PlatformInput, dc, owner)
	info.Icon = "mdi:gesture-tap-button"
	return &InputSensor{
		sensor: sensor{newBase(info, device.State{"state": gryf.InputReleased})},
		dev:    dev,
	}
}

func (i *InputSensor) Attach(_ context.Context, w StateWriter, _ Restorer) {
	i.attach(w, func() func() {
		return i.dev.Subscribe(func(state int) {
			i.update(func(s device.State) { s["state"] = state })
		})
	})
}

// TemperatureSensor reports a temperature in °C.
type TemperatureSensor struct {
	sensor
	dev TemperatureDevice
}

// NewTemperatureSensor creates a temperature sensor adapter.
func NewTemperatureSensor(dc config.DeviceConfig, owner Owner, dev TemperatureDevice) *TemperatureSensor {
	info := deviceInfo(device.ComponentSensor, config.PlatformTemperature, dc, owner)
	info.DeviceClass = "temperature"
	return &TemperatureSensor{
		sensor: sensor{newBase(info, device.State{"state": nil, "unit": "°C"})},
		dev:    dev,
	}
}

func (t *TemperatureSensor) Attach(_ context.Context, w StateWriter, _ Restorer) {
	t.attach(w, func() func() {
		return t.dev.Subscribe(func(c float64) {
			t.update(func(s device.State) { s["state"] = c })
		})
	})
}

// LineSensor shows the last raw bus line in one direction. Its icon flips
// between the idle and active variant on every line.
type LineSensor struct {
	sensor
	dev   LineDevice
	icons [2]string
	blink bool
}

// NewLineSensor creates a line diagnostic sensor. name is config.LineInName
// or config.LineOutName.
func NewLineSensor(name string, owner Owner, dev LineDevice) *LineSensor {
	icons := config.LineSensorIcons[name]
	info := device.Entity{
		ID:        UniqueID(owner.Port, "line", name),
		Name:      name,
		Component: device.ComponentSensor,
		Kind:      "line",
		EntryID:   owner.EntryID,
		Icon:      icons[0],
		Device:    owner.Device,
	}
	return &LineSensor{
		sensor: sensor{newBase(info, device.State{"state": "", "icon": icons[0]})},
		dev:    dev,
		icons:  icons,
	}
}

func (l *LineSensor) Attach(_ context.Context, w StateWriter, _ Restorer) {
	l.attach(w, func() func() {
		return l.dev.Subscribe(func(line string) {
			l.update(func(s device.State) {
				l.blink = !l.blink
				icon := l.icons[0]
				if l.blink {
					icon = l.icons[1]
				}
				s["state"] = line
				s["icon"] = icon
			})
		})
	})
}
