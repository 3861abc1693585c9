package scheduler

import (
	"fmt"
	"time"
)

// Named config profiles.
const (
	// ProfileConservative uses low concurrency and generous delays,
	// for remote services that throttle aggressively.
	ProfileConservative = "conservative"

	// ProfileDefault is the balanced profile.
	ProfileDefault = "default"

	// ProfileAggressive uses high concurrency and minimal pacing.
	ProfileAggressive = "aggressive"
)

// Config holds the run tunables. It is constructed once before a run
// and read-only thereafter.
type Config struct {
	// MaxCollectionConcurrency bounds collections imported in parallel.
	MaxCollectionConcurrency int

	// MaxGroupConcurrency bounds groups in flight per collection.
	MaxGroupConcurrency int

	// MaxUnitConcurrency bounds units in flight per collection.
	MaxUnitConcurrency int

	// InterRequestDelay is the minimum spacing between outbound
	// requests, shared across every running unit task.
	InterRequestDelay time.Duration

	// MaxRetries is the number of attempts per unit, including the
	// first.
	MaxRetries int

	// RetryDelay is the fixed wait between attempts of one unit.
	RetryDelay time.Duration

	// ProgressInterval is the reporting cadence; counter updates are
	// never throttled, only the emitted progress lines.
	ProgressInterval time.Duration
}

// DefaultConfig returns the balanced profile.
func DefaultConfig() Config {
	return Config{
		MaxCollectionConcurrency: 2,
		MaxGroupConcurrency:      2,
		MaxUnitConcurrency:       4,
		InterRequestDelay:        150 * time.Millisecond,
		MaxRetries:               3,
		RetryDelay:               time.Second,
		ProgressInterval:         time.Second,
	}
}

// ProfileConfig returns the named profile. Unknown names fail fast
// before any task is scheduled.
func ProfileConfig(name string) (Config, error) {
	switch name {
	case ProfileConservative:
		return Config{
			MaxCollectionConcurrency: 1,
			MaxGroupConcurrency:      1,
			MaxUnitConcurrency:       2,
			InterRequestDelay:        500 * time.Millisecond,
			MaxRetries:               3,
			RetryDelay:               2 * time.Second,
			ProgressInterval:         time.Second,
		}, nil
	case ProfileDefault:
		return DefaultConfig(), nil
	case ProfileAggressive:
		return Config{
			MaxCollectionConcurrency: 4,
			MaxGroupConcurrency:      4,
			MaxUnitConcurrency:       8,
			InterRequestDelay:        25 * time.Millisecond,
			MaxRetries:               2,
			RetryDelay:               250 * time.Millisecond,
			ProgressInterval:         time.Second,
		}, nil
	default:
		return Config{}, fmt.Errorf("%w: %q (valid: %s, %s, %s)",
			ErrUnknownProfile, name, ProfileConservative, ProfileDefault, ProfileAggressive)
	}
}

// Validate checks that every tunable is positive.
func (c Config) Validate() error {
	if c.MaxCollectionConcurrency <= 0 {
		return fmt.Errorf("%w: max collection concurrency must be positive (got %d)", ErrInvalidConfig, c.MaxCollectionConcurrency)
	}
	if c.MaxGroupConcurrency <= 0 {
		return fmt.Errorf("%w: max group concurrency must be positive (got %d)", ErrInvalidConfig, c.MaxGroupConcurrency)
	}
	if c.MaxUnitConcurrency <= 0 {
		return fmt.Errorf("%w: max unit concurrency must be positive (got %d)", ErrInvalidConfig, c.MaxUnitConcurrency)
	}
	if c.InterRequestDelay < 0 {
		return fmt.Errorf("%w: inter-request delay must not be negative (got %v)", ErrInvalidConfig, c.InterRequestDelay)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: max retries must be positive (got %d)", ErrInvalidConfig, c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative (got %v)", ErrInvalidConfig, c.RetryDelay)
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("%w: progress interval must be positive (got %v)", ErrInvalidConfig, c.ProgressInterval)
	}
	return nil
}
