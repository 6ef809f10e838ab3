package core

import (
	"encoding/json"
	"time"
)

// TriggerStatus represents the current state of a trigger.
type TriggerStatus string

const (
	// StatusScheduled means the trigger is waiting for its fire time.
	StatusScheduled TriggerStatus = "scheduled"
	// StatusFiring means a scheduler has claimed the trigger and is
	// dispatching its handler.
	StatusFiring TriggerStatus = "firing"
	// StatusExhausted is terminal: the trigger produced its last
	// occurrence and left the active schedule.
	StatusExhausted TriggerStatus = "exhausted"
	// StatusCancelled is terminal: the trigger was removed by a caller.
	StatusCancelled TriggerStatus = "cancelled"
)

// Terminal reports whether the status removes the trigger from the
// active schedule.
func (s TriggerStatus) Terminal() bool {
	return s == StatusExhausted || s == StatusCancelled
}

// Trigger is a persisted recurring timer. The scheduler stores the
// occurrence counter and the next resolved fire time alongside the
// serialized Spec; the counter is only ever advanced under the row
// lock, which serializes concurrent schedulers per trigger.
type Trigger struct {
	ID         string        `gorm:"primaryKey;size:36"`
	Name       string        `gorm:"uniqueIndex;size:255;not null"`
	Kind       Kind          `gorm:"index;size:16;not null"`
	Spec       []byte        `gorm:"type:bytes;not null"`
	Payload    []byte        `gorm:"type:bytes"`
	Status     TriggerStatus `gorm:"index;size:20;default:'scheduled'"`
	Occurrence int           `gorm:"default:0"`

	FireAt      *time.Time `gorm:"index"`
	LastFiredAt *time.Time
	LastError   string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	LockedBy    string     `gorm:"size:255"`
	LockedUntil *time.Time `gorm:"index"`
}

// DecodeSpec deserializes the trigger's recurrence definition.
func (t *Trigger) DecodeSpec() (Spec, error) {
	var s Spec
	if err := json.Unmarshal(t.Spec, &s); err != nil {
		return Spec{}, err
	}
	return s, nil
}
