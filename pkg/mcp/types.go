package mcp

import (
	"encoding/json"

	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/integration"
)

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string                  `json:"status" jsonschema:"description=Overall health status (healthy or unhealthy)"`
	Bus       string                  `json:"bus" jsonschema:"description=Whether any Gryf bus is connected"`
	Buses     []integration.BusStatus `json:"buses,omitempty" jsonschema:"description=Per entry bus status"`
	Timestamp string                  `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- List Entities Tool ---

// ListEntitiesOutput is the output for the list_entities tool
type ListEntitiesOutput struct {
	Entities []EntityInfo `json:"entities" jsonschema:"description=Registered entities"`
	Count    int          `json:"count" jsonschema:"description=Total number of entities"`
}

// EntityInfo represents an entity in tool outputs
type EntityInfo struct {
	ID          string          `json:"id" jsonschema:"description=Unique entity id"`
	Name        string          `json:"name" jsonschema:"description=User-friendly name"`
	Component   string          `json:"component" jsonschema:"description=Hub component (light/switch/cover/climate/lock/binary_sensor/sensor)"`
	Kind        string          `json:"kind" jsonschema:"description=Configured device type"`
	EntryID     string          `json:"entry_id,omitempty" jsonschema:"description=Owning config entry"`
	Address     int             `json:"address,omitempty" jsonschema:"description=Bus address (module*10 + pin)"`
	StateSchema json.RawMessage `json:"state_schema,omitempty" jsonschema:"description=JSON Schema for commands"`
	State       map[string]any  `json:"state,omitempty" jsonschema:"description=Current state"`
}

// --- Get Entity Tool ---

// GetEntityOutput is the output for the get_entity tool
type GetEntityOutput struct {
	Entity EntityInfo `json:"entity" jsonschema:"description=Entity information"`
}

// --- State Tools ---

// StateOutput is the output for get_state, set_state, turn_on and turn_off
type StateOutput struct {
	EntityID string         `json:"entity_id" jsonschema:"description=Entity id"`
	State    map[string]any `json:"state" jsonschema:"description=Entity state"`
}

// --- Service Tools ---

// ServiceOutput is the output for reset, search_modules and gryf_expert
type ServiceOutput struct {
	Success bool   `json:"success" jsonschema:"description=Whether the service ran"`
	Message string `json:"message" jsonschema:"description=Status message"`
}

// EntityToInfo converts a device.Entity to EntityInfo
func EntityToInfo(e *device.Entity) EntityInfo {
	return EntityInfo{
		ID:          e.ID,
		Name:        e.Name,
		Component:   e.Component,
		Kind:        e.Kind,
		EntryID:     e.EntryID,
		Address:     e.Address,
		StateSchema: e.StateSchema,
	}
}
