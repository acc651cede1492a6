package telemetry

import "errors"

var (
	// ErrConstraintViolation indicates an insert collided with an existing
	// identifier. It signals caller misuse and must not be retried.
	ErrConstraintViolation = errors.New("telemetry constraint violation")

	// ErrStorageUnavailable indicates the database is closed, unreadable, or
	// failed with an IO-level error. Recovery belongs to the calling loop.
	ErrStorageUnavailable = errors.New("telemetry storage unavailable")

	// ErrInvalidID indicates an explicit identifier of zero.
	ErrInvalidID = errors.New("telemetry record id must be non-zero")
)
