package gryf

import "errors"

var (
	// ErrNotConnected indicates the serial link is down
	ErrNotConnected = errors.New("gryf bus not connected")

	// ErrConnection indicates the serial port could not be opened
	ErrConnection = errors.New("gryf connection failed")

	// ErrInvalidFrame indicates a bus line could not be parsed
	ErrInvalidFrame = errors.New("invalid gryf frame")

	// ErrInvalidPin indicates a pin outside the module's range
	ErrInvalidPin = errors.New("pin out of range")
)
