package configflow

import "errors"

var (
	ErrFlowNotFound  = errors.New("flow not found")
	ErrUnknownStep   = errors.New("unknown step")
	ErrEntryNotFound = errors.New("config entry not found")
)
