package jobcore

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("jobcore: no store configured")
	ErrStoreClosed     = errors.New("jobcore: store closed")
	ErrMigrationFailed = errors.New("jobcore: migration failed")

	// Not found errors.
	ErrJobNotFound        = errors.New("jobcore: job not found")
	ErrItemNotFound       = errors.New("jobcore: job item not found")
	ErrCheckpointNotFound = errors.New("jobcore: checkpoint not found")

	// Conflict errors.
	ErrJobAlreadyExists     = errors.New("jobcore: job already exists")
	ErrDuplicateCorrelation = errors.New("jobcore: duplicate correlation id")

	// State errors.
	ErrInvalidTransition = errors.New("jobcore: invalid state transition")
	ErrAlreadyTerminal   = errors.New("jobcore: already in a terminal state")

	// Command errors.
	ErrInvalidCommand = errors.New("jobcore: invalid command")
	ErrUnknownCommand = errors.New("jobcore: unknown command kind")
	ErrUnknownJobType = errors.New("jobcore: unknown job type")
)
