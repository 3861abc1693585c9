package scheduler

import "errors"

// Common errors returned before any task is scheduled.
var (
	// ErrUnknownProfile is returned for a profile name that is not one
	// of conservative, default, or aggressive.
	ErrUnknownProfile = errors.New("unknown config profile")

	// ErrInvalidConfig is returned when a config value is non-positive.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidJob is returned when the job description is malformed.
	ErrInvalidJob = errors.New("invalid job description")
)
