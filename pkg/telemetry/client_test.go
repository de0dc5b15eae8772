package telemetry

import (
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestStatePoint(t *testing.T) {
	e := device.Entity{ID: "gryfsmart_com3_output_12", Component: device.ComponentSwitch, Kind: "output"}
	ts := time.Unix(1700000000, 0)

	p := statePoint(e, device.State{"state": device.StateOn, "icon": "mdi:x"}, ts)
	require.NotNil(t, p)

	line := write.PointToLineProtocol(p, time.Second)
	assert.Contains(t, line, "entity_state,component=switch,entity_id=gryfsmart_com3_output_12,kind=output ")
	assert.Contains(t, line, `state="ON"`)
	assert.Contains(t, line, "on=true")
	assert.NotContains(t, line, "icon")
	assert.Contains(t, line, "1700000000")
}

func TestStatePoint_Numbers(t *testing.T) {
	p := statePoint(device.Entity{ID: "c"}, device.State{
		"current_temperature": 21.5,
		"brightness":          129,
		"is_closed":           true,
	}, time.Unix(0, 0))
	require.NotNil(t, p)

	line := write.PointToLineProtocol(p, time.Second)
	assert.Contains(t, line, "current_temperature=21.5")
	assert.Contains(t, line, "brightness=129")
	assert.Contains(t, line, "is_closed=true")
}

func TestStatePoint_Empty(t *testing.T) {
	assert.Nil(t, statePoint(device.Entity{ID: "t"}, device.State{"state": nil, "icon": "mdi:x"}, time.Now()))
}
