package core

import (
	"context"
	"time"
)

// Storage defines the persistence layer for triggers.
type Storage interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Save inserts a new trigger or updates an existing one by ID.
	Save(ctx context.Context, trigger *Trigger) error

	// Get retrieves a trigger by ID, ErrTriggerNotFound when missing.
	Get(ctx context.Context, id string) (*Trigger, error)

	// GetByName retrieves a trigger by its unique name.
	GetByName(ctx context.Context, name string) (*Trigger, error)

	// GetByStatus retrieves triggers in the given status.
	GetByStatus(ctx context.Context, status TriggerStatus, limit int) ([]*Trigger, error)

	// GetDue retrieves scheduled triggers whose fire time has passed,
	// soonest first, without claiming them.
	GetDue(ctx context.Context, limit int) ([]*Trigger, error)

	// Claim fetches and locks the next due scheduled trigger, or nil
	// when none is due. A claimed trigger moves to StatusFiring.
	Claim(ctx context.Context, schedulerID string) (*Trigger, error)

	// MarkFired records the outcome of a firing for a claimed trigger:
	// advances the occurrence counter, stores the (possibly empty)
	// handler error, and either reschedules at nextFireAt or, when
	// nextFireAt is nil, retires the trigger as exhausted. Fails with
	// ErrTriggerNotOwned when the claim is not held.
	MarkFired(ctx context.Context, id, schedulerID string, occurrence int, nextFireAt *time.Time, errMsg string) error

	// Cancel moves a trigger to StatusCancelled and releases any lock.
	Cancel(ctx context.Context, id string) error

	// Delete removes a trigger row entirely.
	Delete(ctx context.Context, id string) error

	// ReleaseStaleLocks returns firing triggers whose lock expired
	// longer than staleDuration ago to the schedule.
	ReleaseStaleLocks(ctx context.Context, staleDuration time.Duration) (int64, error)
}
