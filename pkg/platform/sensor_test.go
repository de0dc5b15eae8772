package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/gryf"
)

func TestBinarySensor(t *testing.T) {
	dev := &fakeInput{}
	b := NewBinarySensor(config.DeviceConfig{Type: config.PlatformBinarySensor, ID: 17, Name: "Window", Extra: "window"}, testOwner, dev)
	w := &recorder{}
	b.Attach(context.Background(), w, nil)

	assert.Equal(t, "window", b.Info().DeviceClass)
	assert.Equal(t, device.StateOff, w.last()["state"])

	dev.fire(gryf.InputPressed)
	assert.Equal(t, device.StateOn, w.last()["state"])

	n := w.count()
	dev.fire(gryf.InputShortPress)
	dev.fire(gryf.InputLongPress)
	assert.Equal(t, n, w.count())

	assert.ErrorIs(t, b.Handle(context.Background(), nil), device.ErrUnsupported)
}

func TestBinarySensor_Negation(t *testing.T) {
	dev := &fakeInput{}
	b := NewBinarySensor(config.DeviceConfig{Type: config.PlatformBinarySensor, ID: 17, Negation: true}, testOwner, dev)
	w := &recorder{}
	b.Attach(context.Background(), w, nil)

	assert.Equal(t, device.StateOn, w.last()["state"])
	dev.fire(gryf.InputPressed)
	assert.Equal(t, device.StateOff, w.last()["state"])
	dev.fire(gryf.InputReleased)
	assert.Equal(t, device.StateOn, w.last()["state"])
}

func TestInputSensor(t *testing.T) {
	dev := &fakeInput{}
	s := NewInputSensor(config.DeviceConfig{Type: config.PlatformInput, ID: 18, Name: "Button"}, testOwner, dev)
	w := &recorder{}
	s.Attach(context.Background(), w, nil)

	for _, v := range []int{gryf.InputPressed, gryf.InputShortPress, gryf.InputLongPress} {
		dev.fire(v)
		assert.Equal(t, v, w.last()["state"])
	}
}

func TestTemperatureSensor(t *testing.T) {
	dev := &fakeTemperature{}
	s := NewTemperatureSensor(config.DeviceConfig{Type: config.PlatformTemperature, ID: 41, Name: "Hall"}, testOwner, dev)
	w := &recorder{}
	s.Attach(context.Background(), w, nil)

	assert.Nil(t, w.last()["state"])
	dev.fire(-3.5)
	assert.Equal(t, -3.5, w.last()["state"])
	assert.Equal(t, "temperature", s.Info().DeviceClass)
}

func TestLineSensor_IconAlternates(t *testing.T) {
	dev := &fakeLine{}
	s := NewLineSensor(config.LineInName, testOwner, dev)
	w := &recorder{}
	s.Attach(context.Background(), w, nil)

	icons := config.LineSensorIcons[config.LineInName]
	assert.Equal(t, "gryfsmart_dev_ttyusb0_line_gryf_in", s.Info().ID)
	assert.Equal(t, icons[0], w.last()["icon"])

	dev.fire("I=1,0,0,0,0,0,0,0,0")
	assert.Equal(t, "I=1,0,0,0,0,0,0,0,0", w.last()["state"])
	assert.Equal(t, icons[1], w.last()["icon"])

	dev.fire("O=1,0,0,0,0,0,0")
	assert.Equal(t, icons[0], w.last()["icon"])
}
