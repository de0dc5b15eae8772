package platform

import (
	"context"
	"fmt"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
)

// Cover states as published to the hub.
const (
	CoverOpen    = "open"
	CoverClosed  = "closed"
	CoverOpening = "opening"
	CoverClosing = "closing"
)

// Cover is a shutter.
type Cover struct {
	base
	dev CoverDevice

	moved bool
}

// NewCover creates a shutter adapter.
func NewCover(dc config.DeviceConfig, owner Owner, dev CoverDevice) *Cover {
	info := deviceInfo(device.ComponentCover, config.PlatformCover, dc, owner)
	info.DeviceClass = "shutter"
	info.StateSchema = coverSchema
	return &Cover{
		base: newBase(info, device.State{
			"state":      CoverOpen,
			"is_closed":  false,
			"is_opening": false,
			"is_closing": false,
		}),
		dev: dev,
	}
}

func (c *Cover) Attach(_ context.Context, w StateWriter, _ Restorer) {
	c.attach(w, func() func() { return c.dev.Subscribe(c.onUpdate) })
}

func (c *Cover) Handle(ctx context.Context, cmd map[string]any) error {
	switch v, _ := stringArg(cmd, "state"); v {
	case "OPEN":
		return c.dev.TurnOn(ctx)
	case "CLOSE":
		return c.dev.TurnOff(ctx)
	case "STOP":
		return c.dev.Stop(ctx)
	case "OPEN_TILT":
		return c.dev.Toggle(ctx)
	default:
		return fmt.Errorf("%w: unknown cover command %q", device.ErrValidation, v)
	}
}

// onUpdate tracks motion. When the cover stops after a seen move it is open
// if it was opening and closed otherwise.
func (c *Cover) onUpdate(state int) {
	c.update(func(s device.State) {
		switch state {
		case gryf.CoverStateOpening:
			s["is_opening"], s["is_closing"] = true, false
			s["state"] = CoverOpening
			c.moved = true
		case gryf.CoverStateClosing:
			s["is_opening"], s["is_closing"] = false, true
			s["state"] = CoverClosing
			c.moved = true
		default:
			wasOpening, _ := s["is_opening"].(bool)
			if wasOpening && c.moved {
				s["is_closed"] = false
			} else if c.moved {
				s["is_closed"] = true
			}
			s["is_opening"], s["is_closing"] = false, false
			if closed, _ := s["is_closed"].(bool); closed {
				s["state"] = CoverClosed
			} else {
				s["state"] = CoverOpen
			}
		}
	})
}

// Gate is a gate opener driven by an output impulse: every command toggles
// the output and the gate state mirrors it.
type Gate struct {
	base
	dev OutputDevice
}

// NewGate creates a gate adapter.
func NewGate(dc config.DeviceConfig, owner Owner, dev OutputDevice) *Gate {
	info := deviceInfo(device.ComponentCover, config.PlatformGate, dc, owner)
	info.DeviceClass = "gate"
	info.StateSchema = coverSchema
	return &Gate{
		base: newBase(info, device.State{"state": CoverClosed, "is_closed": true}),
		dev:  dev,
	}
}

func (g *Gate) Attach(_ context.Context, w StateWriter, _ Restorer) {
	g.attach(w, func() func() {
		return g.dev.Subscribe(func(on bool) {
			g.update(func(s device.State) {
				s["is_closed"] = !on
				if on {
					s["state"] = CoverOpen
				} else {
					s["state"] = CoverClosed
				}
			})
		})
	})
}

func (g *Gate) Handle(ctx context.Context, _ map[string]any) error {
	return g.dev.Toggle(ctx)
}
