package types

import (
	"encoding/json"
	"time"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/integration"
)

// --- Request DTOs ---

// ServiceRequest is the request body for POST /services/{reset,search_modules}.
// An empty entry_id targets the YAML bus.
type ServiceRequest struct {
	EntryID string `json:"entry_id"`
}

// GryfExpertRequest is the request body for POST /services/gryf_expert
type GryfExpertRequest struct {
	EntryID string `json:"entry_id"`
	Action  string `json:"action" binding:"required,oneof=turn_on turn_off"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string                  `json:"status"`
	Bus       string                  `json:"bus"`
	Buses     []integration.BusStatus `json:"buses"`
	Timestamp time.Time               `json:"timestamp"`
}

// ListEntitiesResponse is returned from GET /entities
type ListEntitiesResponse struct {
	Entities []EntityWithState `json:"entities"`
	Count    int               `json:"count"`
}

// EntityWithState combines entity info with its current state
type EntityWithState struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Component   string            `json:"component"`
	Kind        string            `json:"kind"`
	EntryID     string            `json:"entry_id,omitempty"`
	Address     int               `json:"address,omitempty"`
	DeviceClass string            `json:"device_class,omitempty"`
	Device      device.DeviceInfo `json:"device"`
	StateSchema json.RawMessage   `json:"state_schema,omitempty"`
	State       map[string]any    `json:"state,omitempty"`
}

// EntityResponse is returned from GET /entities/:id
type EntityResponse struct {
	Entity EntityWithState `json:"entity"`
}

// StateResponse is returned from GET/POST /entities/:id/state
type StateResponse struct {
	Entity    string         `json:"entity"`
	State     map[string]any `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
}

// ServiceResponse is returned from POST /services/*
type ServiceResponse struct {
	Service string `json:"service"`
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}

// Entry is a stored config entry as returned by the API
type Entry struct {
	EntryID   string            `json:"entry_id"`
	UniqueID  string            `json:"unique_id"`
	Title     string            `json:"title"`
	Data      config.EntryData  `json:"data"`
	Options   *config.EntryData `json:"options,omitempty"`
	Loaded    bool              `json:"loaded"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ListEntriesResponse is returned from GET /entries
type ListEntriesResponse struct {
	Entries []Entry `json:"entries"`
	Count   int     `json:"count"`
}

// EntityFromDevice converts an entity into its API form
func EntityFromDevice(e device.Entity, state device.State) EntityWithState {
	return EntityWithState{
		ID:          e.ID,
		Name:        e.Name,
		Component:   e.Component,
		Kind:        e.Kind,
		EntryID:     e.EntryID,
		Address:     e.Address,
		DeviceClass: e.DeviceClass,
		Device:      e.Device,
		StateSchema: e.StateSchema,
		State:       state,
	}
}
