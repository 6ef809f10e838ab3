// Package triggers provides a durable scheduler for recurring and
// one-shot timers backed by a relational database.
//
// This is the main package users should import. It re-exports all
// public types from the internal pkg/ packages for a clean API
// surface.
//
// Basic usage:
//
//	// Create storage and scheduler
//	db, _ := gorm.Open(sqlite.Open("triggers.db"), &gorm.Config{})
//	store, _ := triggers.NewGormStorage(db)
//	store.Migrate(context.Background())
//	sched := triggers.New(store)
//
//	// Register handler
//	sched.Register("daily-report", func(ctx context.Context, p ReportParams) error {
//	    return sendReport(ctx, p)
//	})
//
//	// Fire every day at 09:30
//	sched.Schedule(ctx, "daily-report", triggers.Spec{
//	    Match: &triggers.Rule{Hour: mo.Some(9), Minute: mo.Some(30)},
//	}, ReportParams{Team: "ops"})
//
//	// Start firing
//	sched.Start(ctx)
package triggers

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/simple-recurring-triggers/pkg/core"
	"github.com/jdziat/simple-recurring-triggers/pkg/match"
	"github.com/jdziat/simple-recurring-triggers/pkg/schedule"
	"github.com/jdziat/simple-recurring-triggers/pkg/scheduler"
	"github.com/jdziat/simple-recurring-triggers/pkg/security"
	"github.com/jdziat/simple-recurring-triggers/pkg/storage"
)

type (
	// Trigger is a persisted recurring timer.
	Trigger = core.Trigger

	// TriggerStatus represents the current state of a trigger.
	TriggerStatus = core.TriggerStatus

	// Kind identifies how a trigger computes its next fire time.
	Kind = core.Kind

	// Spec is the serialized recurrence definition of a trigger.
	Spec = core.Spec

	// Storage defines the persistence layer for triggers.
	Storage = core.Storage

	// Rule is a sparse calendar-field constraint that resolves fire
	// times by matching the fields it sets.
	Rule = match.Rule

	// Schedule computes successive run times.
	Schedule = schedule.Schedule

	// Scheduler persists triggers and fires them when due.
	Scheduler = scheduler.Scheduler

	// Option configures a Scheduler.
	Option = scheduler.Option

	// Config holds scheduler configuration.
	Config = scheduler.Config

	// GormStorage implements Storage using GORM.
	GormStorage = storage.GormStorage

	// PoolOption configures the database connection pool.
	PoolOption = storage.PoolOption

	// Event is the interface for all scheduler events.
	Event = core.Event

	// TriggerScheduled is emitted when a trigger is saved with a
	// resolved fire time.
	TriggerScheduled = core.TriggerScheduled

	// TriggerFired is emitted after a trigger's handler ran
	// successfully.
	TriggerFired = core.TriggerFired

	// TriggerFailed is emitted when a trigger's handler returns an
	// error.
	TriggerFailed = core.TriggerFailed

	// TriggerExhausted is emitted when a trigger produced its last
	// occurrence.
	TriggerExhausted = core.TriggerExhausted

	// TriggerCancelled is emitted when a caller cancels a trigger.
	TriggerCancelled = core.TriggerCancelled
)

// Status constants
const (
	StatusScheduled = core.StatusScheduled
	StatusFiring    = core.StatusFiring
	StatusExhausted = core.StatusExhausted
	StatusCancelled = core.StatusCancelled
)

// Kind constants
const (
	KindMatch = core.KindMatch
	KindEvery = core.KindEvery
	KindCron  = core.KindCron
	KindOnce  = core.KindOnce
)

// Security limits
const (
	MaxTriggerNameLength  = security.MaxTriggerNameLength
	MaxPayloadSize        = security.MaxPayloadSize
	MaxConcurrency        = security.MaxConcurrency
	MaxErrorMessageLength = security.MaxErrorMessageLength
)

// Validation and lifecycle errors.
var (
	ErrInvalidTriggerName = core.ErrInvalidTriggerName
	ErrTriggerNameTooLong = core.ErrTriggerNameTooLong
	ErrPayloadTooLarge    = core.ErrPayloadTooLarge
	ErrInvalidSpec        = core.ErrInvalidSpec
	ErrTriggerNotFound    = core.ErrTriggerNotFound
	ErrDuplicateTrigger   = core.ErrDuplicateTrigger
	ErrTriggerNotOwned    = core.ErrTriggerNotOwned
	ErrNoOccurrence       = core.ErrNoOccurrence
	ErrNoHandler          = core.ErrNoHandler
)

// New creates a Scheduler on the given storage backend.
func New(s Storage, opts ...Option) *Scheduler {
	return scheduler.New(s, opts...)
}

// NewGormStorage creates a GORM-backed storage.
func NewGormStorage(db *gorm.DB, opts ...PoolOption) (*GormStorage, error) {
	return storage.NewGormStorage(db, opts...)
}

// Scheduler options.

// PollInterval sets how often the scheduler checks storage for due
// triggers.
func PollInterval(d time.Duration) Option { return scheduler.PollInterval(d) }

// Concurrency sets how many triggers can fire at once.
func Concurrency(n int) Option { return scheduler.Concurrency(n) }

// SchedulerID overrides the generated scheduler identity used for
// claim ownership.
func SchedulerID(id string) Option { return scheduler.SchedulerID(id) }

// StaleAfter sets how long an expired claim lock may linger before
// the sweeper returns the trigger to the schedule.
func StaleAfter(d time.Duration) Option { return scheduler.StaleAfter(d) }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return scheduler.WithLogger(l) }

// Schedule constructors.

// Every creates a schedule that runs at fixed intervals.
func Every(d time.Duration) Schedule { return schedule.Every(d) }

// Daily creates a schedule that runs at a specific time each day.
func Daily(hour, minute int) Schedule { return schedule.Daily(hour, minute) }

// Weekly creates a schedule that runs at a specific day and time each
// week.
func Weekly(day time.Weekday, hour, minute int) Schedule {
	return schedule.Weekly(day, hour, minute)
}

// Cron creates a schedule from a standard five-field cron expression.
// Panics on a malformed expression; use ParseCron to handle errors.
func Cron(expr string) Schedule { return schedule.Cron(expr) }

// ParseCron creates a schedule from a standard five-field cron
// expression.
func ParseCron(expr string) (Schedule, error) { return schedule.ParseCron(expr) }

// Once creates a schedule that runs a single time.
func Once(at time.Time) Schedule { return schedule.Once(at) }

// Match creates a schedule from a calendar-field rule.
func Match(rule Rule) Schedule { return schedule.Match(rule) }
