package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/integration"
)

// Commands sent by turn_on and turn_off, per component. Components not
// listed use ON and OFF.
var (
	onCommands = map[string]string{
		device.ComponentCover: "OPEN",
		device.ComponentLock:  "LOCK",
	}
	offCommands = map[string]string{
		device.ComponentCover: "CLOSE",
		device.ComponentLock:  "UNLOCK",
	}
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	busStatus := "disconnected"
	if s.controller.IsConnected() {
		busStatus = "connected"
	}

	status := "healthy"
	if busStatus != "connected" {
		status = "unhealthy"
	}

	out := GetHealthOutput{
		Status:    status,
		Bus:       busStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if s.services != nil {
		out.Buses = s.services.Status()
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entities, err := s.controller.ListEntities(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list entities: %s", err)), nil
	}

	component, _ := request.GetArguments()["component"].(string)

	infos := make([]EntityInfo, 0, len(entities))
	for i := range entities {
		if component != "" && entities[i].Component != component {
			continue
		}
		info := EntityToInfo(&entities[i])
		if state, err := s.controller.GetState(ctx, entities[i].ID); err == nil {
			info.State = state
		}
		infos = append(infos, info)
	}

	out := ListEntitiesOutput{
		Entities: infos,
		Count:    len(infos),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.controller.GetEntity(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("entity not found: %s", err)), nil
	}

	info := EntityToInfo(e)
	if state, err := s.controller.GetState(ctx, e.ID); err == nil {
		info.State = state
	}

	out := GetEntityOutput{Entity: info}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state, err := s.controller.GetState(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get state: %s", err)), nil
	}

	out := StateOutput{
		EntityID: id,
		State:    state,
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()

	// The command is either a nested "state" object or the flat arguments.
	command := map[string]any{}
	if raw, ok := args["state"]; ok {
		if m, ok := raw.(map[string]any); ok {
			command = m
		} else {
			command["state"] = raw
		}
	} else {
		for k, v := range args {
			if k != "id" {
				command[k] = v
			}
		}
	}

	return s.send(ctx, id, command, "failed to set state")
}

func (s *Server) handleTurnOn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.controller.GetEntity(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("entity not found: %s", err)), nil
	}

	command := map[string]any{"state": commandFor(onCommands, e.Component, device.StateOn)}
	if b, ok := request.GetArguments()["brightness"]; ok {
		if bf, ok := b.(float64); ok {
			command["brightness"] = bf
		}
	}

	return s.send(ctx, e.ID, command, "failed to turn on entity")
}

func (s *Server) handleTurnOff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.controller.GetEntity(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("entity not found: %s", err)), nil
	}

	command := map[string]any{"state": commandFor(offCommands, e.Component, device.StateOff)}
	return s.send(ctx, e.ID, command, "failed to turn off entity")
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entryID := entryArg(request)
	if err := s.services.Reset(ctx, entryID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reset modules: %s", err)), nil
	}

	out := ServiceOutput{
		Success: true,
		Message: fmt.Sprintf("Reset sent on entry %q", entryID),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSearchModules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entryID := entryArg(request)
	if err := s.services.SearchModules(ctx, entryID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to search modules: %s", err)), nil
	}

	out := ServiceOutput{
		Success: true,
		Message: fmt.Sprintf("Module search started on entry %q; call get_health for the modules that answered", entryID),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGryfExpert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := requiredString(request, "action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if action != "turn_on" && action != "turn_off" {
		return mcp.NewToolResultError(fmt.Sprintf("action must be turn_on or turn_off, got %q", action)), nil
	}

	entryID := entryArg(request)
	if err := s.services.GryfExpert(ctx, entryID, action); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to switch Gryf Expert server: %s", err)), nil
	}

	out := ServiceOutput{
		Success: true,
		Message: fmt.Sprintf("Gryf Expert server %s on entry %q", action, entryID),
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// send validates command against the entity's state schema and forwards it.
func (s *Server) send(ctx context.Context, id string, command map[string]any, failure string) (*mcp.CallToolResult, error) {
	if s.validator != nil {
		e, err := s.controller.GetEntity(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("entity not found: %s", err)), nil
		}
		if err := s.validator.Validate(e.StateSchema, command); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("validation error: %s", err)), nil
		}
	}

	state, err := s.controller.SetState(ctx, id, command)
	if err != nil {
		if errors.Is(err, device.ErrNotConnected) {
			return mcp.NewToolResultError(fmt.Sprintf("%s: the Gryf bus is disconnected", failure)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", failure, err)), nil
	}

	out := StateOutput{
		EntityID: id,
		State:    state,
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- helpers ---

func commandFor(commands map[string]string, component, fallback string) string {
	if c, ok := commands[component]; ok {
		return c
	}
	return fallback
}

func entryArg(request mcp.CallToolRequest) string {
	if id, ok := request.GetArguments()["entry_id"].(string); ok && id != "" {
		return id
	}
	return integration.YAMLEntryID
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := encodeJSON(v)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}

func encodeJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
