package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
)

func newTestClimate(t *testing.T) (*Climate, *fakeThermostat, *recorder) {
	t.Helper()
	dev := &fakeThermostat{}
	c := NewClimate(config.DeviceConfig{Type: config.PlatformClimate, ID: 15, Name: "Room", Extra: 41, Hysteresis: 5}, testOwner, dev)
	w := &recorder{}
	c.Attach(context.Background(), w, nil)
	return c, dev, w
}

func TestClimate_Defaults(t *testing.T) {
	c, _, _ := newTestClimate(t)
	s := c.State()
	assert.Equal(t, HVACModeOff, s["hvac_mode"])
	assert.Equal(t, config.PresetNormal, s["preset_mode"])
	assert.Equal(t, gryf.DefaultTargetTemperature, s["temperature"])
}

func TestClimate_Handle(t *testing.T) {
	c, dev, w := newTestClimate(t)
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, map[string]any{"hvac_mode": "heat"}))
	require.NoError(t, c.Handle(ctx, map[string]any{"preset_mode": config.PresetTheSlowest}))
	require.NoError(t, c.Handle(ctx, map[string]any{"temperature": 22.5}))
	require.NoError(t, c.Handle(ctx, map[string]any{"state": "OFF"}))

	dev.mu.Lock()
	assert.Equal(t, []bool{true, false}, dev.enabled)
	assert.Equal(t, 2, dev.differential)
	assert.InDelta(t, 22.5, dev.target, 1e-9)
	dev.mu.Unlock()

	last := w.last()
	assert.Equal(t, HVACModeOff, last["hvac_mode"])
	assert.Equal(t, config.PresetTheSlowest, last["preset_mode"])
	assert.Equal(t, 22.5, last["temperature"])
}

func TestClimate_RejectsBadInput(t *testing.T) {
	c, _, _ := newTestClimate(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Handle(ctx, map[string]any{"hvac_mode": "cool"}), device.ErrValidation)
	assert.ErrorIs(t, c.Handle(ctx, map[string]any{"temperature": 99}), device.ErrValidation)
}

func TestClimate_UpdateReappliesMode(t *testing.T) {
	c, dev, w := newTestClimate(t)
	require.NoError(t, c.Handle(context.Background(), map[string]any{"hvac_mode": "heat"}))

	dev.fire(gryf.ThermostatState{Temperature: 19.4, Output: true})

	assert.Equal(t, 19.4, w.last()["current_temperature"])
	assert.Equal(t, HVACActionHeat, w.last()["hvac_action"])

	dev.mu.Lock()
	assert.Equal(t, []bool{true, true}, dev.enabled)
	dev.mu.Unlock()

	dev.fire(gryf.ThermostatState{Temperature: 21.6, Output: false})
	assert.Equal(t, HVACActionOff, c.State()["hvac_action"])
}

func TestClimate_DetachStopsRegulation(t *testing.T) {
	c, dev, _ := newTestClimate(t)
	c.Detach()

	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.True(t, dev.closed)
}
