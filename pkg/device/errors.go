package device

import "errors"

var (
	// ErrNotFound indicates an entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrNotConnected indicates the bus is not connected
	ErrNotConnected = errors.New("bus not connected")

	// ErrUnsupported indicates the entity does not accept the command
	ErrUnsupported = errors.New("operation not supported")

	// ErrValidation indicates a command payload failed schema validation
	ErrValidation = errors.New("validation error")
)
