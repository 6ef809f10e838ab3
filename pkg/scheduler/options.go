package scheduler

import (
	"log/slog"
	"time"

	"github.com/jdziat/simple-recurring-triggers/pkg/security"
)

// Option configures a Scheduler.
type Option interface {
	Apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) Apply(c *Config) { f(c) }

// Config holds scheduler configuration.
type Config struct {
	PollInterval time.Duration
	Concurrency  int
	SchedulerID  string
	StaleAfter   time.Duration
	Logger       *slog.Logger

	StorageRetry *RetryConfig
	ClaimRetry   *RetryConfig
}

// PollInterval sets how often the scheduler checks storage for due
// triggers.
func PollInterval(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	})
}

// Concurrency sets how many triggers can fire at once.
// Values are clamped to [1, MaxConcurrency].
func Concurrency(n int) Option {
	return optionFunc(func(c *Config) {
		c.Concurrency = security.ClampConcurrency(n)
	})
}

// SchedulerID overrides the generated scheduler identity used for
// claim ownership. Useful for stable identities across restarts.
func SchedulerID(id string) Option {
	return optionFunc(func(c *Config) {
		if id != "" {
			c.SchedulerID = id
		}
	})
}

// StaleAfter sets how long an expired claim lock may linger before the
// sweeper returns the trigger to the schedule.
func StaleAfter(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		if d > 0 {
			c.StaleAfter = d
		}
	})
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Config) {
		c.Logger = l
	})
}
