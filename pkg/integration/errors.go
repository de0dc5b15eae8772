package integration

import "errors"

var (
	// ErrNotReady is returned when an entry's bus cannot be opened. The
	// entry is retried in the background.
	ErrNotReady = errors.New("bus not ready")

	// ErrEntryNotFound is returned by services for an unknown entry id.
	ErrEntryNotFound = errors.New("config entry not found")

	// ErrAlreadySetUp is returned when an entry is set up twice.
	ErrAlreadySetUp = errors.New("config entry already set up")
)
