package device

import (
	"encoding/json"
	"time"
)

// Entity is one hub entity exposed by the bridge.
type Entity struct {
	ID          string          `json:"id"`                     // Unique id, stable across restarts
	Name        string          `json:"name"`                   // User-friendly name
	Component   string          `json:"component"`              // Hub component (light, switch, cover, climate, lock, binary_sensor, sensor)
	Kind        string          `json:"kind"`                   // Configured device type (pwm, output, gate, ...)
	EntryID     string          `json:"entry_id,omitempty"`     // Owning config entry, empty for YAML setups
	Address     int             `json:"address,omitempty"`      // Bus address (module*10 + pin)
	DeviceClass string          `json:"device_class,omitempty"` // Hub device class
	Icon        string          `json:"icon,omitempty"`
	Device      DeviceInfo      `json:"device"`
	StateSchema json.RawMessage `json:"state_schema"` // JSON Schema for settable state
}

// DeviceInfo groups entities under one hub device.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
	HWVersion    string   `json:"hw_version,omitempty"`
}

// State is the current state of an entity as a dynamic map.
type State map[string]any

// Clone returns a shallow copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Event is published whenever an entity appears, disappears or changes state.
type Event struct {
	Type      string    `json:"type"`             // Event type (entity_added, entity_removed, state_changed)
	EntityID  string    `json:"entity_id"`        // Entity the event is about
	Entity    *Entity   `json:"entity,omitempty"` // Entity information on add
	State     State     `json:"state,omitempty"`  // New state on state_changed
	Timestamp time.Time `json:"timestamp"`        // When the event occurred
}

// Event type constants
const (
	EventEntityAdded   = "entity_added"
	EventEntityRemoved = "entity_removed"
	EventStateChanged  = "state_changed"
)

// Hub component constants
const (
	ComponentLight        = "light"
	ComponentSwitch       = "switch"
	ComponentCover        = "cover"
	ComponentClimate      = "climate"
	ComponentLock         = "lock"
	ComponentBinarySensor = "binary_sensor"
	ComponentSensor       = "sensor"
)

// State values shared by several components.
const (
	StateOn  = "ON"
	StateOff = "OFF"
)
