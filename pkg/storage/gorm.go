package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jdziat/simple-recurring-triggers/pkg/core"
	"github.com/jdziat/simple-recurring-triggers/pkg/security"
)

// claimDuration is how long a claimed trigger stays locked before a
// stale-lock sweep may reclaim it.
const claimDuration = 5 * time.Minute

// GormStorage implements core.Storage using GORM.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB, opts ...PoolOption) (*GormStorage, error) {
	if len(opts) > 0 {
		if err := configurePool(db, opts...); err != nil {
			return nil, err
		}
	}
	return &GormStorage{db: db}, nil
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.Trigger{})
}

// Save inserts a new trigger or updates an existing one by ID.
// Scheduling a second active trigger under the same name fails with
// ErrDuplicateTrigger.
func (s *GormStorage) Save(ctx context.Context, trigger *core.Trigger) error {
	if trigger.ID == "" {
		trigger.ID = uuid.New().String()
	}
	if trigger.Status == "" {
		trigger.Status = core.StatusScheduled
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&core.Trigger{}).
			Where("name = ? AND id <> ?", trigger.Name, trigger.ID).
			Where("status IN ?", []core.TriggerStatus{core.StatusScheduled, core.StatusFiring}).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return core.ErrDuplicateTrigger
		}
		return tx.Save(trigger).Error
	})
}

// Get retrieves a trigger by ID.
func (s *GormStorage) Get(ctx context.Context, id string) (*core.Trigger, error) {
	var trigger core.Trigger
	err := s.db.WithContext(ctx).First(&trigger, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrTriggerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trigger, nil
}

// GetByName retrieves a trigger by its unique name.
func (s *GormStorage) GetByName(ctx context.Context, name string) (*core.Trigger, error) {
	var trigger core.Trigger
	err := s.db.WithContext(ctx).First(&trigger, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrTriggerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trigger, nil
}

// GetByStatus retrieves triggers in the given status.
func (s *GormStorage) GetByStatus(ctx context.Context, status core.TriggerStatus, limit int) ([]*core.Trigger, error) {
	var list []*core.Trigger
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("fire_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// GetDue retrieves scheduled triggers whose fire time has passed,
// soonest first, without claiming them.
func (s *GormStorage) GetDue(ctx context.Context, limit int) ([]*core.Trigger, error) {
	var list []*core.Trigger
	err := s.db.WithContext(ctx).
		Where("status = ?", core.StatusScheduled).
		Where("fire_at IS NOT NULL AND fire_at <= ?", time.Now()).
		Order("fire_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// Claim fetches and locks the next due scheduled trigger.
func (s *GormStorage) Claim(ctx context.Context, schedulerID string) (*core.Trigger, error) {
	var trigger core.Trigger
	now := time.Now()
	lockUntil := now.Add(claimDuration)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.
			Where("status = ?", core.StatusScheduled).
			Where("fire_at IS NOT NULL AND fire_at <= ?", now).
			Where("(locked_until IS NULL OR locked_until < ?)", now).
			Order("fire_at ASC").
			First(&trigger)

		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return result.Error
		}

		trigger.Status = core.StatusFiring
		trigger.LockedBy = schedulerID
		trigger.LockedUntil = &lockUntil

		return tx.Save(&trigger).Error
	})

	if err != nil {
		return nil, err
	}
	if trigger.ID == "" {
		return nil, nil
	}
	return &trigger, nil
}

// MarkFired records a firing outcome for a claimed trigger. A nil
// nextFireAt retires the trigger as exhausted.
func (s *GormStorage) MarkFired(ctx context.Context, id, schedulerID string, occurrence int, nextFireAt *time.Time, errMsg string) error {
	now := time.Now()
	updates := map[string]any{
		"occurrence":    occurrence,
		"last_fired_at": now,
		"last_error":    security.SanitizeErrorMessage(errMsg),
		"locked_by":     "",
		"locked_until":  nil,
	}

	if nextFireAt != nil {
		updates["status"] = core.StatusScheduled
		updates["fire_at"] = nextFireAt
	} else {
		updates["status"] = core.StatusExhausted
		updates["fire_at"] = nil
	}

	result := s.db.WithContext(ctx).
		Model(&core.Trigger{}).
		Where("id = ? AND locked_by = ?", id, schedulerID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrTriggerNotOwned
	}
	return nil
}

// Cancel moves a trigger to StatusCancelled and releases any lock.
func (s *GormStorage) Cancel(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&core.Trigger{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       core.StatusCancelled,
			"fire_at":      nil,
			"locked_by":    "",
			"locked_until": nil,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrTriggerNotFound
	}
	return nil
}

// Delete removes a trigger row entirely.
func (s *GormStorage) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&core.Trigger{}, "id = ?", id).Error
}

// ReleaseStaleLocks returns firing triggers with expired locks to the
// schedule so another scheduler can claim them.
func (s *GormStorage) ReleaseStaleLocks(ctx context.Context, staleDuration time.Duration) (int64, error) {
	cutoff := time.Now().Add(-staleDuration)
	result := s.db.WithContext(ctx).
		Model(&core.Trigger{}).
		Where("status = ?", core.StatusFiring).
		Where("locked_until < ?", cutoff).
		Updates(map[string]any{
			"status":       core.StatusScheduled,
			"locked_by":    "",
			"locked_until": nil,
		})
	return result.RowsAffected, result.Error
}
