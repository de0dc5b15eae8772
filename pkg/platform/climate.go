package platform

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
)

// HVAC modes and actions.
const (
	HVACModeHeat     = "heat"
	HVACModeOff      = "off"
	HVACActionHeat   = "heating"
	HVACActionOff    = "off"
	ClimateMinTemp   = -10.0
	ClimateMaxTemp   = 50.0
	ClimateTempStep  = 0.5
	ClimatePrecision = 0.1
)

// Climate is a software thermostat pairing a heating output with a sensor.
type Climate struct {
	base
	dev ThermostatDevice
}

// NewClimate creates a climate adapter. The record id is the output, the
// extra parameter the temperature sensor.
func NewClimate(dc config.DeviceConfig, owner Owner, dev ThermostatDevice) *Climate {
	info := deviceInfo(device.ComponentClimate, config.PlatformClimate, dc, owner)
	info.StateSchema = climateSchema
	return &Climate{
		base: newBase(info, device.State{
			"hvac_mode":           HVACModeOff,
			"hvac_action":         HVACActionOff,
			"preset_mode":         config.PresetNormal,
			"temperature":         gryf.DefaultTargetTemperature,
			"current_temperature": gryf.DefaultTargetTemperature,
		}),
		dev: dev,
	}
}

func (c *Climate) Attach(_ context.Context, w StateWriter, _ Restorer) {
	c.attach(w, func() func() { return c.dev.Subscribe(c.onUpdate) })
}

// Handle applies any combination of on/off, hvac_mode, preset_mode and
// temperature.
func (c *Climate) Handle(ctx context.Context, cmd map[string]any) error {
	if s, ok := stringArg(cmd, "state"); ok {
		mode := HVACModeHeat
		if s == device.StateOff {
			mode = HVACModeOff
		}
		if err := c.setMode(ctx, mode); err != nil {
			return err
		}
	}

	if v, ok := cmd["hvac_mode"].(string); ok {
		if err := c.setMode(ctx, v); err != nil {
			return err
		}
	}

	if preset, ok := cmd["preset_mode"].(string); ok {
		c.dev.ChangeDifferential(config.PresetDifferential(preset))
		c.update(func(s device.State) { s["preset_mode"] = preset })
	}

	t, ok, err := numberArg(cmd, "temperature")
	if err != nil {
		return err
	}
	if ok {
		if t < ClimateMinTemp || t > ClimateMaxTemp {
			return fmt.Errorf("%w: temperature %.1f out of range", device.ErrValidation, t)
		}
		if err := c.dev.SetTargetTemperature(ctx, t); err != nil {
			return err
		}
		c.update(func(s device.State) { s["temperature"] = t })
	}
	return nil
}

func (c *Climate) setMode(ctx context.Context, mode string) error {
	if mode != HVACModeHeat && mode != HVACModeOff {
		return fmt.Errorf("%w: unknown hvac mode %q", device.ErrValidation, mode)
	}
	c.update(func(s device.State) { s["hvac_mode"] = mode })
	return c.dev.Enable(ctx, mode != HVACModeOff)
}

// onUpdate records the reading and heating state, then re-applies the
// current mode.
func (c *Climate) onUpdate(st gryf.ThermostatState) {
	var mode string
	c.update(func(s device.State) {
		s["current_temperature"] = st.Temperature
		if st.Output {
			s["hvac_action"] = HVACActionHeat
		} else {
			s["hvac_action"] = HVACActionOff
		}
		mode, _ = s["hvac_mode"].(string)
	})

	if err := c.dev.Enable(context.Background(), mode != HVACModeOff); err != nil {
		log.Warn().Err(err).Str("entity", c.info.ID).Msg("Failed to re-apply hvac mode")
	}
}

// Detach also stops regulation when the device supports it, so an unloaded
// entry stops driving a bus it shares with others.
func (c *Climate) Detach() {
	c.base.Detach()
	if closer, ok := c.dev.(interface{ Close() }); ok {
		closer.Close()
	}
}
