package telemetry

import "errors"

var (
	// ErrDisabled is returned by Connect when telemetry is switched off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed is returned when the server does not answer a ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")
)
