package platform

import (
	"context"
	"fmt"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
)

// Lock states as published to the hub.
const (
	LockLocked    = "LOCKED"
	LockUnlocked  = "UNLOCKED"
	LockLocking   = "LOCKING"
	LockUnlocking = "UNLOCKING"
)

// Lock is an electric lock on a relay output. The output on means locked.
type Lock struct {
	base
	dev OutputDevice
}

// NewLock creates a lock adapter.
func NewLock(dc config.DeviceConfig, owner Owner, dev OutputDevice) *Lock {
	info := deviceInfo(device.ComponentLock, config.PlatformLock, dc, owner)
	info.StateSchema = lockSchema
	return &Lock{
		base: newBase(info, device.State{
			"state":        LockUnlocked,
			"is_locked":    false,
			"is_locking":   false,
			"is_unlocking": false,
		}),
		dev: dev,
	}
}

func (l *Lock) Attach(_ context.Context, w StateWriter, _ Restorer) {
	l.attach(w, func() func() { return l.dev.Subscribe(l.onUpdate) })
}

func (l *Lock) Handle(ctx context.Context, cmd map[string]any) error {
	switch v, _ := stringArg(cmd, "state"); v {
	case "LOCK":
		if err := l.dev.TurnOn(ctx); err != nil {
			return err
		}
		l.update(func(s device.State) {
			s["is_locking"] = true
			s["state"] = LockLocking
		})
	case "UNLOCK":
		if err := l.dev.TurnOff(ctx); err != nil {
			return err
		}
		l.update(func(s device.State) {
			s["is_locking"] = false
			s["state"] = lockState(s)
		})
	default:
		return fmt.Errorf("%w: unknown lock command %q", device.ErrValidation, v)
	}
	return nil
}

func (l *Lock) onUpdate(locked bool) {
	l.update(func(s device.State) {
		s["is_locked"] = locked
		s["is_locking"] = false
		s["is_unlocking"] = false
		s["state"] = lockState(s)
	})
}

func lockState(s device.State) string {
	if v, _ := s["is_locking"].(bool); v {
		return LockLocking
	}
	if v, _ := s["is_unlocking"].(bool); v {
		return LockUnlocking
	}
	if v, _ := s["is_locked"].(bool); v {
		return LockLocked
	}
	return LockUnlocked
}
