package config

// Domain is the integration domain used in identifiers, topics and the YAML section.
const Domain = "gryfsmart"

// Configuration keys. They appear verbatim in stored config entries.
const (
	KeyModuleCount    = "module_count"
	KeyPort           = "port"
	KeyType           = "type"
	KeyID             = "id"
	KeyName           = "name"
	KeyExtra          = "extra parameters"
	KeyDevices        = "devices"
	KeyCommunication  = "communication"
	KeyDeviceClass    = "device_class"
	KeyTemp           = "temp"
	KeyOut            = "out"
	KeyTime           = "time"
	KeyNegation       = "negation"
	KeyTempID         = "temp_id"
	KeyOutID          = "out_id"
	KeyHysteresisLoop = "hysteresis_loop"
)

// Platform is the device type tag stored in every device record.
type Platform string

const (
	PlatformPWM          Platform = "pwm"
	PlatformTemperature  Platform = "temperature"
	PlatformInput        Platform = "input"
	PlatformLight        Platform = "light"
	PlatformBinarySensor Platform = "binary_sensor"
	PlatformSwitch       Platform = "output"
	PlatformClimate      Platform = "climate"
	PlatformLock         Platform = "lock"
	PlatformCover        Platform = "cover"
	PlatformGate         Platform = "gate"
)

// Platforms lists every device platform in menu order.
var Platforms = []Platform{
	PlatformCover,
	PlatformLight,
	PlatformSwitch,
	PlatformBinarySensor,
	PlatformLock,
	PlatformClimate,
	PlatformPWM,
	PlatformTemperature,
	PlatformInput,
	PlatformGate,
}

// PublicNames maps platforms to the labels shown in the add-device menu.
var PublicNames = map[Platform]string{
	PlatformCover:        "Shutter",
	PlatformLight:        "Lights",
	PlatformSwitch:       "Output",
	PlatformBinarySensor: "Binary input",
	PlatformLock:         "Lock",
	PlatformClimate:      "Thermostat",
	PlatformPWM:          "PWM",
	PlatformTemperature:  "Termometr",
	PlatformInput:        "Input",
	PlatformGate:         "Gate",
}

// Valid reports whether p is a known platform tag.
func (p Platform) Valid() bool {
	_, ok := PublicNames[p]
	return ok
}

const (
	DefaultPort        = "/dev/ttyUSB0"
	DefaultModuleCount = 1
	DefaultCoverTime   = 100

	// FirstAddress is the address offered for the first device in the wizard.
	FirstAddress = 11
)

// Bus line diagnostic sensor names.
const (
	LineInName  = "Gryf IN"
	LineOutName = "Gryf OUT"
)

// LineSensorIcons holds the idle and active icon for each line sensor.
var LineSensorIcons = map[string][2]string{
	LineInName:  {"mdi:message-arrow-right-outline", "mdi:message-arrow-right"},
	LineOutName: {"mdi:message-arrow-left-outline", "mdi:message-arrow-left"},
}

// Heating presets and the thermostat differential each one selects.
const (
	PresetNormal      = "away"
	PresetSlowest     = "eco"
	PresetTheSlowest  = "sleep"
	DifferentialAway  = 0
	DifferentialEco   = 1
	DifferentialSleep = 2
)

// Presets lists the climate presets in display order.
var Presets = []string{PresetNormal, PresetSlowest, PresetTheSlowest}

// PresetDifferential returns the thermostat differential for a preset.
// Unknown presets select the slowest mode.
func PresetDifferential(preset string) int {
	switch preset {
	case PresetNormal:
		return DifferentialAway
	case PresetSlowest:
		return DifferentialEco
	default:
		return DifferentialSleep
	}
}

// Config-flow menu options.
var MenuOptions = map[string]string{
	"add_device":    "Add Device",
	"edit_device":   "Edit Device",
	"communication": "Setup Communication",
	"finish":        "Finish",
}

// MenuOrder is the display order of MenuOptions.
var MenuOrder = []string{"add_device", "edit_device", "communication", "finish"}

// BinarySensorDeviceClasses maps configured class names to hub device classes.
var BinarySensorDeviceClasses = map[string]string{
	"door":        "door",
	"garage door": "garage_door",
	"heat":        "heat",
	"light":       "light",
	"motion":      "motion",
	"window":      "window",
	"smoke":       "smoke",
	"sound":       "sound",
	"power":       "power",
}

// DefaultBinarySensorClass is used when a binary input has no class.
const DefaultBinarySensorClass = "opening"

// SwitchDeviceClasses maps configured class names to hub device classes.
var SwitchDeviceClasses = map[string]string{
	"switch": "switch",
	"outlet": "outlet",
}

// DefaultSwitchClass is used when an output has no class.
const DefaultSwitchClass = "switch"

// BinarySensorClass resolves a configured class name, falling back to the default.
func BinarySensorClass(name string) string {
	if c, ok := BinarySensorDeviceClasses[name]; ok {
		return c
	}
	return DefaultBinarySensorClass
}

// SwitchClass resolves a configured class name, falling back to the default.
func SwitchClass(name string) string {
	if c, ok := SwitchDeviceClasses[name]; ok {
		return c
	}
	return DefaultSwitchClass
}
