package platform

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/gryf"
)

// Build creates the adapter for one device record on api.
func Build(dc config.DeviceConfig, owner Owner, api *gryf.API) (Entity, error) {
	module, pin := dc.Module(), dc.Pin()

	switch dc.Type {
	case config.PlatformLight:
		return NewLight(dc, owner, gryf.NewOutput(dc.Name, module, pin, api)), nil
	case config.PlatformPWM:
		return NewPWMLight(dc, owner, gryf.NewPWM(dc.Name, module, pin, api)), nil
	case config.PlatformSwitch:
		return NewSwitch(dc, owner, gryf.NewOutput(dc.Name, module, pin, api)), nil
	case config.PlatformLock:
		return NewLock(dc, owner, gryf.NewOutput(dc.Name, module, pin, api)), nil
	case config.PlatformGate:
		return NewGate(dc, owner, gryf.NewOutput(dc.Name, module, pin, api)), nil
	case config.PlatformCover:
		seconds := dc.ExtraInt()
		if seconds <= 0 {
			seconds = config.DefaultCoverTime
		}
		return NewCover(dc, owner, gryf.NewCover(dc.Name, module, pin, seconds, api)), nil
	case config.PlatformClimate:
		tempModule, tempPin := config.SplitAddress(dc.ExtraInt())
		th := gryf.NewThermostat(dc.Name, module, pin, tempModule, tempPin, dc.Hysteresis, api)
		return NewClimate(dc, owner, th), nil
	case config.PlatformBinarySensor:
		return NewBinarySensor(dc, owner, gryf.NewInput(dc.Name, module, pin, api)), nil
	case config.PlatformInput:
		return NewInputSensor(dc, owner, gryf.NewInput(dc.Name, module, pin, api)), nil
	case config.PlatformTemperature:
		return NewTemperatureSensor(dc, owner, gryf.NewTemperature(dc.Name, module, pin, api)), nil
	default:
		return nil, fmt.Errorf("unknown device type %q for %q", dc.Type, dc.Name)
	}
}

// BuildAll creates adapters for every record plus the per-bus reset switch
// and line sensors. Bad records and records repeating a type and address
// are logged and skipped.
func BuildAll(devices []config.DeviceConfig, owner Owner, api *gryf.API) []Entity {
	entities := []Entity{
		NewResetSwitch(owner, gryf.NewResetter(api)),
		NewLineSensor(config.LineInName, owner, gryf.NewLine(config.LineInName, gryf.DirectionIn, api)),
		NewLineSensor(config.LineOutName, owner, gryf.NewLine(config.LineOutName, gryf.DirectionOut, api)),
	}

	seen := make(map[string]bool)
	for _, dc := range devices {
		e, err := Build(dc, owner, api)
		if err != nil {
			log.Warn().Err(err).Str("port", owner.Port).Msg("Skipping device")
			continue
		}
		id := e.Info().ID
		if seen[id] {
			log.Warn().Str("entity", id).Str("name", dc.Name).Msg("Duplicate device address, skipping")
			// Thermostats subscribe to the bus when built.
			e.Detach()
			continue
		}
		seen[id] = true
		entities = append(entities, e)
	}
	return entities
}
