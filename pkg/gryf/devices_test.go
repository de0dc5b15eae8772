package gryf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput(t *testing.T) {
	api, port := newTestAPI(t)
	out := NewOutput("Kitchen", 1, 2, api)
	ctx := context.Background()

	require.NoError(t, out.TurnOn(ctx))
	require.NoError(t, out.TurnOff(ctx))
	require.NoError(t, out.Toggle(ctx))
	assert.Equal(t, []string{
		"AT+SetOut=1,0,1,0,0,0,0",
		"AT+SetOut=1,0,2,0,0,0,0",
		"AT+SetOut=1,0,3,0,0,0,0",
	}, port.lines())

	states := make(chan bool, 2)
	out.Subscribe(func(on bool) { states <- on })
	port.inject(t, "O=1,0,1,0,0,0,0")
	assert.True(t, recv(t, states))
	port.inject(t, "O=1,1,0,0,0,0,0")
	assert.False(t, recv(t, states))
}

func TestOutput_InvalidPin(t *testing.T) {
	api, _ := newTestAPI(t)
	out := NewOutput("bad", 1, 8, api)
	assert.ErrorIs(t, out.TurnOn(context.Background()), ErrInvalidPin)
}

func TestPWM(t *testing.T) {
	api, port := newTestAPI(t)
	pwm := NewPWM("Dimmer", 2, 1, api)

	require.NoError(t, pwm.SetLevel(context.Background(), 40))
	require.NoError(t, pwm.TurnOff(context.Background()))
	assert.Equal(t, []string{"AT+SetLED=2,1,40", "AT+SetLED=2,1,0"}, port.lines())

	levels := make(chan int, 2)
	pwm.Subscribe(func(level int) { levels <- level })
	port.inject(t, "LED=2,3,99")
	port.inject(t, "LED=2,1,75")
	assert.Equal(t, 75, recv(t, levels))
}

func TestInput(t *testing.T) {
	api, port := newTestAPI(t)
	in := NewInput("Button", 3, 4, api)

	states := make(chan int, 4)
	unsub := in.Subscribe(func(s int) { states <- s })

	port.inject(t, "I=3,0,0,0,1,0,0,0,0")
	assert.Equal(t, InputPressed, recv(t, states))
	port.inject(t, "PS=3,4")
	assert.Equal(t, InputShortPress, recv(t, states))
	port.inject(t, "PL=3,2")
	port.inject(t, "PL=3,4")
	assert.Equal(t, InputLongPress, recv(t, states))

	unsub()
	port.inject(t, "PS=3,4")
	assert.Empty(t, states)
}

func TestTemperature(t *testing.T) {
	api, port := newTestAPI(t)
	temp := NewTemperature("Bath", 3, 2, api)

	readings := make(chan float64, 2)
	temp.Subscribe(func(c float64) { readings <- c })
	port.inject(t, "T=3,1,30,0")
	port.inject(t, "T=3,2,22,7")
	assert.InDelta(t, 22.7, recv(t, readings), 0.001)
}

func TestCover(t *testing.T) {
	api, port := newTestAPI(t)
	cover := NewCover("Blind", 2, 2, 40, api)
	ctx := context.Background()

	require.NoError(t, cover.TurnOn(ctx))
	require.NoError(t, cover.TurnOff(ctx))
	require.NoError(t, cover.Stop(ctx))
	require.NoError(t, cover.Toggle(ctx))
	assert.Equal(t, []string{
		"AT+SetRol=2,2,40,1",
		"AT+SetRol=2,2,40,2",
		"AT+SetRol=2,2,40,0",
		"AT+SetRol=2,2,40,3",
	}, port.lines())

	states := make(chan int, 1)
	cover.Subscribe(func(s int) { states <- s })
	port.inject(t, "R=2,0,2,0,0")
	assert.Equal(t, CoverStateClosing, recv(t, states))
}

func TestResetter(t *testing.T) {
	api, port := newTestAPI(t)
	require.NoError(t, NewResetter(api).ResetAll(context.Background()))
	assert.Equal(t, []string{"AT+RST=0"}, port.lines())
}

func TestLine(t *testing.T) {
	api, port := newTestAPI(t)
	line := NewLine("Gryf IN", DirectionIn, api)
	assert.Equal(t, "Gryf IN", line.Name())

	got := make(chan string, 1)
	line.Subscribe(func(l string) { got <- l })
	port.inject(t, "T=1,1,20,0")
	assert.Equal(t, "T=1,1,20,0", recv(t, got))
}
