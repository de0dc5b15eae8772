package hass

import (
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/platform"
)

const stateTemplate = "{{ value_json.state }}"

// Discovery builds the discovery topic and config payload announcing e.
func Discovery(e device.Entity, t Topics) (string, map[string]any) {
	uid := e.ID
	cfg := map[string]any{
		"name":               e.Name,
		"unique_id":          uid,
		"object_id":          uid,
		"state_topic":        t.State(uid),
		"availability_topic": t.Availability(),
		"device": map[string]any{
			"identifiers":  e.Device.Identifiers,
			"name":         e.Device.Name,
			"manufacturer": e.Device.Manufacturer,
			"model":        e.Device.Model,
			"sw_version":   e.Device.SWVersion,
			"hw_version":   e.Device.HWVersion,
		},
	}
	if e.Icon != "" {
		cfg["icon"] = e.Icon
	}
	if e.DeviceClass != "" {
		cfg["device_class"] = e.DeviceClass
	}

	switch e.Component {
	case device.ComponentLight:
		cfg["schema"] = "json"
		cfg["command_topic"] = t.Command(uid)
		if e.Kind == string(config.PlatformPWM) {
			cfg["brightness"] = true
			cfg["brightness_scale"] = 255
			cfg["supported_color_modes"] = []string{"brightness"}
		} else {
			cfg["supported_color_modes"] = []string{"onoff"}
		}

	case device.ComponentSwitch:
		cfg["command_topic"] = t.Command(uid)
		cfg["payload_on"] = device.StateOn
		cfg["payload_off"] = device.StateOff
		cfg["value_template"] = stateTemplate

	case device.ComponentCover:
		cfg["command_topic"] = t.Command(uid)
		cfg["payload_open"] = "OPEN"
		cfg["payload_close"] = "CLOSE"
		cfg["payload_stop"] = "STOP"
		cfg["state_open"] = platform.CoverOpen
		cfg["state_closed"] = platform.CoverClosed
		cfg["state_opening"] = platform.CoverOpening
		cfg["state_closing"] = platform.CoverClosing
		cfg["value_template"] = stateTemplate
		if e.Kind == string(config.PlatformCover) {
			cfg["tilt_command_topic"] = t.CommandField(uid, "tilt")
		}

	case device.ComponentLock:
		cfg["command_topic"] = t.Command(uid)
		cfg["payload_lock"] = "LOCK"
		cfg["payload_unlock"] = "UNLOCK"
		cfg["state_locked"] = platform.LockLocked
		cfg["state_unlocked"] = platform.LockUnlocked
		cfg["state_locking"] = platform.LockLocking
		cfg["state_unlocking"] = platform.LockUnlocking
		cfg["value_template"] = stateTemplate

	case device.ComponentClimate:
		delete(cfg, "state_topic")
		state := t.State(uid)
		cfg["modes"] = []string{platform.HVACModeHeat, platform.HVACModeOff}
		cfg["preset_modes"] = config.Presets
		cfg["mode_command_topic"] = t.CommandField(uid, "hvac_mode")
		cfg["mode_state_topic"] = state
		cfg["mode_state_template"] = "{{ value_json.hvac_mode }}"
		cfg["preset_mode_command_topic"] = t.CommandField(uid, "preset_mode")
		cfg["preset_mode_state_topic"] = state
		cfg["preset_mode_value_template"] = "{{ value_json.preset_mode }}"
		cfg["temperature_command_topic"] = t.CommandField(uid, "temperature")
		cfg["temperature_state_topic"] = state
		cfg["temperature_state_template"] = "{{ value_json.temperature }}"
		cfg["current_temperature_topic"] = state
		cfg["current_temperature_template"] = "{{ value_json.current_temperature }}"
		cfg["action_topic"] = state
		cfg["action_template"] = "{{ value_json.hvac_action }}"
		cfg["min_temp"] = platform.ClimateMinTemp
		cfg["max_temp"] = platform.ClimateMaxTemp
		cfg["temp_step"] = platform.ClimateTempStep
		cfg["precision"] = platform.ClimatePrecision
		cfg["temperature_unit"] = "C"

	case device.ComponentBinarySensor:
		cfg["payload_on"] = device.StateOn
		cfg["payload_off"] = device.StateOff
		cfg["value_template"] = stateTemplate

	case device.ComponentSensor:
		cfg["value_template"] = stateTemplate
		if e.DeviceClass == "temperature" {
			cfg["unit_of_measurement"] = "°C"
			cfg["state_class"] = "measurement"
		}
	}

	return t.Config(e.Component, uid), cfg
}
