package hass

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/platform"
)

func testEntity(component, kind string) device.Entity {
	return device.Entity{
		ID:        "gryfsmart_com3_" + kind + "_12",
		Name:      "Test",
		Component: component,
		Kind:      kind,
		Device: device.DeviceInfo{
			Identifiers:  []string{"gryfsmart", "Gryf Smart", "COM3"},
			Name:         "Gryf Smart COM3",
			Manufacturer: "Gryf Smart",
			Model:        "serial",
		},
	}
}

func TestDiscovery_Common(t *testing.T) {
	e := testEntity(device.ComponentSwitch, "output")
	e.DeviceClass = "outlet"
	e.Icon = "mdi:power"

	topic, cfg := Discovery(e, testTopics)
	assert.Equal(t, "homeassistant/switch/gryfsmart_com3_output_12/config", topic)
	assert.Equal(t, e.ID, cfg["unique_id"])
	assert.Equal(t, "gryfsmart/gryfsmart_com3_output_12/state", cfg["state_topic"])
	assert.Equal(t, "gryfsmart/gryfsmart_com3_output_12/set", cfg["command_topic"])
	assert.Equal(t, "gryfsmart/status", cfg["availability_topic"])
	assert.Equal(t, "outlet", cfg["device_class"])
	assert.Equal(t, "mdi:power", cfg["icon"])
	assert.Equal(t, "Gryf Smart", cfg["device"].(map[string]any)["manufacturer"])
}

func TestDiscovery_Lights(t *testing.T) {
	_, onoff := Discovery(testEntity(device.ComponentLight, "light"), testTopics)
	assert.Equal(t, "json", onoff["schema"])
	assert.Equal(t, []string{"onoff"}, onoff["supported_color_modes"])
	assert.NotContains(t, onoff, "brightness")

	_, pwm := Discovery(testEntity(device.ComponentLight, "pwm"), testTopics)
	assert.Equal(t, true, pwm["brightness"])
	assert.Equal(t, 255, pwm["brightness_scale"])
}

func TestDiscovery_CoverTilt(t *testing.T) {
	_, cover := Discovery(testEntity(device.ComponentCover, "cover"), testTopics)
	assert.Equal(t, "gryfsmart/gryfsmart_com3_cover_12/set/tilt", cover["tilt_command_topic"])
	assert.Equal(t, platform.CoverOpening, cover["state_opening"])

	_, gate := Discovery(testEntity(device.ComponentCover, "gate"), testTopics)
	assert.NotContains(t, gate, "tilt_command_topic")
}

func TestDiscovery_Climate(t *testing.T) {
	_, cfg := Discovery(testEntity(device.ComponentClimate, "climate"), testTopics)
	assert.NotContains(t, cfg, "state_topic")
	assert.Equal(t, "gryfsmart/gryfsmart_com3_climate_12/set/temperature", cfg["temperature_command_topic"])
	assert.Equal(t, []string{"heat", "off"}, cfg["modes"])
	assert.Equal(t, []string{"away", "eco", "sleep"}, cfg["preset_modes"])
	assert.Equal(t, platform.ClimateMinTemp, cfg["min_temp"])
}

func TestDiscovery_TemperatureSensor(t *testing.T) {
	e := testEntity(device.ComponentSensor, "temperature")
	e.DeviceClass = "temperature"
	_, cfg := Discovery(e, testTopics)
	assert.Equal(t, "°C", cfg["unit_of_measurement"])
	assert.NotContains(t, cfg, "command_topic")
}
