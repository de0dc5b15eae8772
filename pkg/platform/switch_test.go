package platform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
)

func TestSwitch(t *testing.T) {
	dev := &fakeOutput{}
	s := NewSwitch(config.DeviceConfig{Type: config.PlatformSwitch, ID: 13, Name: "Socket", Extra: "outlet"}, testOwner, dev)
	w := &recorder{}
	s.Attach(context.Background(), w, nil)
	ctx := context.Background()

	assert.Equal(t, "outlet", s.Info().DeviceClass)

	require.NoError(t, s.Handle(ctx, map[string]any{"state": "ON"}))
	require.NoError(t, s.Handle(ctx, map[string]any{"state": "OFF"}))
	require.NoError(t, s.Handle(ctx, map[string]any{"state": "TOGGLE"}))
	assert.Equal(t, []string{"on", "off", "toggle"}, dev.all())

	dev.fire(true)
	assert.Equal(t, device.StateOn, w.last()["state"])
}

func TestSwitch_DefaultClass(t *testing.T) {
	s := NewSwitch(config.DeviceConfig{Type: config.PlatformSwitch, ID: 13}, testOwner, &fakeOutput{})
	assert.Equal(t, "switch", s.Info().DeviceClass)
}

func TestResetSwitch(t *testing.T) {
	dev := &fakeReset{}
	r := NewResetSwitch(testOwner, dev)
	r.hold = 20 * time.Millisecond
	w := &recorder{}
	r.Attach(context.Background(), w, nil)
	t.Cleanup(r.Detach)
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, map[string]any{"state": "OFF"}))
	assert.Empty(t, dev.all())

	require.NoError(t, r.Handle(ctx, map[string]any{"state": "ON"}))
	assert.Equal(t, []string{"reset"}, dev.all())
	assert.Equal(t, device.StateOn, r.State()["state"])

	assert.Eventually(t, func() bool {
		return r.State()["state"] == device.StateOff
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Handle(ctx, map[string]any{"state": "TOGGLE"}))
	assert.Equal(t, []string{"reset", "reset"}, dev.all())
	assert.Equal(t, device.StateOff, r.State()["state"])
}
