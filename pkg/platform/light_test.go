package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
)

func TestLight_ForwardsAndTracksState(t *testing.T) {
	dev := &fakeOutput{}
	l := NewLight(config.DeviceConfig{Type: config.PlatformLight, ID: 12, Name: "Kitchen"}, testOwner, dev)
	w := &recorder{}
	l.Attach(context.Background(), w, nil)

	assert.Equal(t, "gryfsmart_dev_ttyusb0_light_12", l.Info().ID)
	assert.Equal(t, device.ComponentLight, l.Info().Component)
	assert.Equal(t, device.StateOff, w.last()["state"])

	require.NoError(t, l.Handle(context.Background(), map[string]any{"state": "ON"}))
	require.NoError(t, l.Handle(context.Background(), map[string]any{"state": "off"}))
	assert.Equal(t, []string{"on", "off"}, dev.all())

	dev.fire(true)
	assert.Equal(t, device.StateOn, w.last()["state"])
	assert.Equal(t, "mdi:lightbulb", w.last()["icon"])

	dev.fire(false)
	assert.Equal(t, "mdi:lightbulb-off", l.State()["icon"])
}

func TestLight_RestoresLastState(t *testing.T) {
	dev := &fakeOutput{}
	l := NewLight(config.DeviceConfig{Type: config.PlatformLight, ID: 12, Name: "Kitchen"}, testOwner, dev)
	r := mapRestorer{l.Info().ID: {"state": device.StateOn}}

	w := &recorder{}
	l.Attach(context.Background(), w, r)
	assert.Equal(t, device.StateOn, w.last()["state"])
	assert.Empty(t, dev.all())
}

func TestLight_DetachStopsUpdates(t *testing.T) {
	dev := &fakeOutput{}
	l := NewLight(config.DeviceConfig{Type: config.PlatformLight, ID: 12}, testOwner, dev)
	w := &recorder{}
	l.Attach(context.Background(), w, nil)
	l.Detach()

	n := w.count()
	dev.fire(true)
	assert.Equal(t, n, w.count())
}

func TestBrightnessMapping(t *testing.T) {
	assert.Equal(t, 3, LevelToBrightness(0))
	assert.Equal(t, 129, LevelToBrightness(50))
	assert.Equal(t, 255, LevelToBrightness(100))

	assert.Equal(t, 0, BrightnessToLevel(0))
	assert.Equal(t, 0, BrightnessToLevel(1))
	assert.Equal(t, 49, BrightnessToLevel(128))
	assert.Equal(t, 100, BrightnessToLevel(255))
}

func TestPWMLight(t *testing.T) {
	dev := &fakePWM{}
	p := NewPWMLight(config.DeviceConfig{Type: config.PlatformPWM, ID: 21, Name: "Dimmer"}, testOwner, dev)
	w := &recorder{}
	p.Attach(context.Background(), w, nil)
	ctx := context.Background()

	// Without a remembered brightness turn on goes to full.
	require.NoError(t, p.Handle(ctx, map[string]any{"state": "ON"}))
	require.NoError(t, p.Handle(ctx, map[string]any{"state": "ON", "brightness": 128}))
	require.NoError(t, p.Handle(ctx, map[string]any{"state": "OFF"}))
	require.NoError(t, p.Handle(ctx, map[string]any{"state": "ON"}))
	// Zero brightness is not remembered.
	require.NoError(t, p.Handle(ctx, map[string]any{"brightness": float64(0)}))
	require.NoError(t, p.Handle(ctx, map[string]any{}))
	assert.Equal(t, []int{100, 49, 0, 49, 0, 49}, dev.got())

	dev.fire(50)
	assert.Equal(t, device.StateOn, w.last()["state"])
	assert.Equal(t, 129, w.last()["brightness"])

	dev.fire(0)
	assert.Equal(t, device.StateOff, w.last()["state"])
}

func TestPWMLight_BadBrightness(t *testing.T) {
	p := NewPWMLight(config.DeviceConfig{Type: config.PlatformPWM, ID: 21}, testOwner, &fakePWM{})
	err := p.Handle(context.Background(), map[string]any{"brightness": "bright"})
	assert.Error(t, err)
}
