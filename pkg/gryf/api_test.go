package gryf

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartConnection_OpenFailure(t *testing.T) {
	api := NewAPI("/dev/missing", WithOpener(func(string, int) (Port, error) {
		return nil, errors.New("no such file")
	}))

	err := api.StartConnection(context.Background())
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, api.IsConnected())
	assert.ErrorIs(t, api.StartUpdateInterval(time.Second), ErrNotConnected)
}

func TestStartConnection_Idempotent(t *testing.T) {
	var opens atomic.Int32
	port := newFakePort()
	api := NewAPI("/dev/fake", WithOpener(func(string, int) (Port, error) {
		opens.Add(1)
		return port, nil
	}))
	t.Cleanup(func() { _ = api.Close() })

	require.NoError(t, api.StartConnection(context.Background()))
	require.NoError(t, api.StartConnection(context.Background()))
	assert.Equal(t, int32(1), opens.Load())
	assert.True(t, api.IsConnected())
	assert.Equal(t, "/dev/fake", api.Port())
}

func TestSend_NotConnected(t *testing.T) {
	api := NewAPI("/dev/fake")
	assert.ErrorIs(t, api.Send(context.Background(), "AT+RST=0"), ErrNotConnected)
}

func TestSend_CancelledContext(t *testing.T) {
	api, _ := newTestAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, api.Send(ctx, "AT+RST=0"), context.Canceled)
}

func TestUpdateStates(t *testing.T) {
	api, port := newTestAPI(t)
	api.SetModuleCount(2)

	require.NoError(t, api.UpdateStates(context.Background()))
	assert.Equal(t, []string{
		"AT+StanIN=1", "AT+StanOUT=1",
		"AT+StanIN=2", "AT+StanOUT=2",
	}, port.lines())
}

func TestSetModuleCount_Minimum(t *testing.T) {
	api := NewAPI("/dev/fake")
	api.SetModuleCount(0)
	assert.Equal(t, 1, api.ModuleCount())
}

func TestStartUpdateInterval_Polls(t *testing.T) {
	api, port := newTestAPI(t)
	require.NoError(t, api.StartUpdateInterval(10*time.Millisecond))
	port.waitFor(t, "AT+StanOUT=1")
}

func TestReset(t *testing.T) {
	api, port := newTestAPI(t)
	require.NoError(t, api.Reset(context.Background(), 3, false))
	require.NoError(t, api.Reset(context.Background(), 3, true))
	assert.Equal(t, []string{"AT+RST=3", "AT+RST=0"}, port.lines())
}

func TestSearchModules(t *testing.T) {
	api, port := newTestAPI(t)
	require.NoError(t, api.SearchModules(context.Background(), 2))
	assert.Equal(t, []string{"AT+Search=0,1", "AT+Search=0,2"}, port.lines())

	port.inject(t, "C=2,14")
	assert.Eventually(t, func() bool {
		return api.FoundModules()[2] == 14
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribe_DispatchByModule(t *testing.T) {
	api, port := newTestAPI(t)

	got := make(chan Frame, 4)
	unsub := api.Subscribe(FuncOutput, 2, func(f Frame) { got <- f })

	port.inject(t, "O=1,1,1,1,1,1,1")
	port.inject(t, "O=2,0,1,0,0,0,0")

	f := recv(t, got)
	assert.Equal(t, 2, f.Module)
	assert.Equal(t, []int{0, 1, 0, 0, 0, 0}, f.Values)

	unsub()
	port.inject(t, "O=2,1,1,0,0,0,0")
	port.inject(t, "garbage line")
	select {
	case f := <-got:
		t.Fatalf("unexpected frame after unsubscribe: %v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOnLine(t *testing.T) {
	api, port := newTestAPI(t)

	in := make(chan string, 4)
	out := make(chan string, 4)
	api.OnLine(DirectionIn, func(l string) { in <- l })
	api.OnLine(DirectionOut, func(l string) { out <- l })

	port.inject(t, "I=1,0,0,0,0,0,0,0,0")
	assert.Equal(t, "I=1,0,0,0,0,0,0,0,0", recv(t, in))

	require.NoError(t, api.Send(context.Background(), "AT+StanIN=1"))
	assert.Equal(t, "AT+StanIN=1", recv(t, out))
}

func TestReconnect(t *testing.T) {
	first, second := newFakePort(), newFakePort()
	var opens atomic.Int32
	api := NewAPI("/dev/fake",
		WithReconnectDelay(10*time.Millisecond),
		WithOpener(func(string, int) (Port, error) {
			if opens.Add(1) == 1 {
				return first, nil
			}
			return second, nil
		}))
	require.NoError(t, api.StartConnection(context.Background()))
	t.Cleanup(func() { _ = api.Close() })

	first.hangUp()

	assert.Eventually(t, func() bool {
		return opens.Load() == 2 && api.IsConnected()
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, api.Send(context.Background(), "AT+RST=0"))
	assert.Equal(t, []string{"AT+RST=0"}, second.lines())
}

func TestClose(t *testing.T) {
	api, _ := newTestAPI(t)
	require.NoError(t, api.Close())
	assert.False(t, api.IsConnected())
	assert.ErrorIs(t, api.Send(context.Background(), "AT+RST=0"), ErrNotConnected)
	require.NoError(t, api.Close())
}
