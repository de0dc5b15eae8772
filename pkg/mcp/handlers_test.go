package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/device/schema"
	"github.com/urmzd/gryfd/pkg/integration"
)

type fakeController struct {
	mu        sync.Mutex
	entities  []device.Entity
	states    map[string]device.State
	commands  []map[string]any
	connected bool
}

func (c *fakeController) ListEntities(context.Context) ([]device.Entity, error) {
	return c.entities, nil
}

func (c *fakeController) GetEntity(_ context.Context, id string) (*device.Entity, error) {
	for i := range c.entities {
		if c.entities[i].ID == id {
			e := c.entities[i]
			return &e, nil
		}
	}
	return nil, device.ErrNotFound
}

func (c *fakeController) GetState(_ context.Context, id string) (device.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.states[id]
	if !ok {
		return nil, device.ErrNotFound
	}
	return s.Clone(), nil
}

func (c *fakeController) SetState(_ context.Context, id string, command map[string]any) (device.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, device.ErrNotConnected
	}
	c.commands = append(c.commands, command)
	s := c.states[id]
	for k, v := range command {
		s[k] = v
	}
	return s.Clone(), nil
}

func (c *fakeController) IsConnected() bool { return c.connected }

func (c *fakeController) Close() {}

type fakeServices struct {
	calls []string
	err   error
}

func (f *fakeServices) Reset(_ context.Context, entryID string) error {
	f.calls = append(f.calls, "reset:"+entryID)
	return f.err
}

func (f *fakeServices) SearchModules(_ context.Context, entryID string) error {
	f.calls = append(f.calls, "search:"+entryID)
	return f.err
}

func (f *fakeServices) GryfExpert(_ context.Context, entryID, action string) error {
	f.calls = append(f.calls, action+":"+entryID)
	return f.err
}

func (f *fakeServices) Status() []integration.BusStatus {
	return []integration.BusStatus{{EntryID: integration.YAMLEntryID, Port: "/dev/ttyUSB0", ModuleCount: 2, Connected: true}}
}

const (
	lightID = "gryfsmart_dev_ttyusb0_light_11"
	coverID = "gryfsmart_dev_ttyusb0_cover_12"
)

func newTestServer(connected bool) (*Server, *fakeController, *fakeServices) {
	ctrl := &fakeController{
		connected: connected,
		entities: []device.Entity{
			{
				ID: lightID, Name: "Kitchen", Component: device.ComponentLight, Kind: "pwm", Address: 11,
				StateSchema: json.RawMessage(`{"type":"object","properties":{"state":{"type":"string","enum":["ON","OFF"]},"brightness":{"type":"number","minimum":0,"maximum":255}},"additionalProperties":false}`),
			},
			{
				ID: coverID, Name: "Blind", Component: device.ComponentCover, Kind: "cover", Address: 12,
				StateSchema: json.RawMessage(`{"type":"object","required":["state"],"properties":{"state":{"type":"string","enum":["OPEN","CLOSE","STOP"]}},"additionalProperties":false}`),
			},
		},
		states: map[string]device.State{
			lightID: {"state": "OFF", "brightness": 0},
			coverID: {"state": "closed"},
		},
	}
	svc := &fakeServices{}
	return NewServer(ctrl, schema.NewValidator(), svc), ctrl, svc
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)

	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return res, c.Text
	case *mcp.TextContent:
		return res, c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return nil, ""
}

func TestGetHealth(t *testing.T) {
	s, _, _ := newTestServer(true)

	res, text := call(t, s.handleGetHealth, nil)
	assert.False(t, res.IsError)

	var out GetHealthOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "connected", out.Bus)
	require.Len(t, out.Buses, 1)
	assert.Equal(t, "/dev/ttyUSB0", out.Buses[0].Port)
}

func TestListEntities_FilterByComponent(t *testing.T) {
	s, _, _ := newTestServer(true)

	_, text := call(t, s.handleListEntities, nil)
	var all ListEntitiesOutput
	require.NoError(t, json.Unmarshal([]byte(text), &all))
	assert.Equal(t, 2, all.Count)
	assert.Equal(t, "OFF", all.Entities[0].State["state"])

	_, text = call(t, s.handleListEntities, map[string]any{"component": "cover"})
	var covers ListEntitiesOutput
	require.NoError(t, json.Unmarshal([]byte(text), &covers))
	require.Equal(t, 1, covers.Count)
	assert.Equal(t, coverID, covers.Entities[0].ID)
}

func TestGetEntity(t *testing.T) {
	s, _, _ := newTestServer(true)

	_, text := call(t, s.handleGetEntity, map[string]any{"id": lightID})
	var out GetEntityOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "Kitchen", out.Entity.Name)
	assert.NotEmpty(t, out.Entity.StateSchema)

	res, _ := call(t, s.handleGetEntity, map[string]any{"id": "missing"})
	assert.True(t, res.IsError)

	res, text = call(t, s.handleGetEntity, nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text, `"id" is missing`)
}

func TestSetState_Validates(t *testing.T) {
	s, ctrl, _ := newTestServer(true)

	res, text := call(t, s.handleSetState, map[string]any{"id": lightID, "state": map[string]any{"brightness": 300.0}})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "validation error")
	assert.Empty(t, ctrl.commands)

	res, text = call(t, s.handleSetState, map[string]any{"id": lightID, "state": map[string]any{"state": "ON", "brightness": 128.0}})
	require.False(t, res.IsError, text)
	var out StateOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "ON", out.State["state"])
	assert.EqualValues(t, 128, out.State["brightness"])
}

func TestSetState_FlatArguments(t *testing.T) {
	s, ctrl, _ := newTestServer(true)

	res, text := call(t, s.handleSetState, map[string]any{"id": coverID, "state": "STOP"})
	require.False(t, res.IsError, text)
	require.Len(t, ctrl.commands, 1)
	assert.Equal(t, map[string]any{"state": "STOP"}, ctrl.commands[0])
}

func TestSetState_Disconnected(t *testing.T) {
	s, _, _ := newTestServer(false)

	res, text := call(t, s.handleSetState, map[string]any{"id": lightID, "state": map[string]any{"state": "ON"}})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "disconnected")
}

func TestTurnOnOff_PerComponent(t *testing.T) {
	s, ctrl, _ := newTestServer(true)

	res, text := call(t, s.handleTurnOn, map[string]any{"id": lightID, "brightness": 64.0})
	require.False(t, res.IsError, text)
	res, text = call(t, s.handleTurnOn, map[string]any{"id": coverID})
	require.False(t, res.IsError, text)
	res, text = call(t, s.handleTurnOff, map[string]any{"id": coverID})
	require.False(t, res.IsError, text)

	require.Len(t, ctrl.commands, 3)
	assert.Equal(t, map[string]any{"state": "ON", "brightness": 64.0}, ctrl.commands[0])
	assert.Equal(t, map[string]any{"state": "OPEN"}, ctrl.commands[1])
	assert.Equal(t, map[string]any{"state": "CLOSE"}, ctrl.commands[2])

	res, _ = call(t, s.handleTurnOff, map[string]any{"id": "missing"})
	assert.True(t, res.IsError)
}

func TestServices(t *testing.T) {
	s, _, svc := newTestServer(true)

	res, _ := call(t, s.handleReset, nil)
	assert.False(t, res.IsError)
	res, _ = call(t, s.handleSearchModules, map[string]any{"entry_id": "abc"})
	assert.False(t, res.IsError)
	res, _ = call(t, s.handleGryfExpert, map[string]any{"action": "turn_on"})
	assert.False(t, res.IsError)

	res, _ = call(t, s.handleGryfExpert, map[string]any{"action": "explode"})
	assert.True(t, res.IsError)

	assert.Equal(t, []string{"reset:yaml", "search:abc", "turn_on:yaml"}, svc.calls)

	svc.err = integration.ErrEntryNotFound
	res, text := call(t, s.handleReset, map[string]any{"entry_id": "nope"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "failed to reset")
}
