package core

import "time"

// Event is the interface for all trigger events.
type Event interface {
	eventMarker()
}

// TriggerScheduled is emitted when a trigger is saved with a resolved
// fire time.
type TriggerScheduled struct {
	Trigger   *Trigger
	FireAt    time.Time
	Timestamp time.Time
}

func (*TriggerScheduled) eventMarker() {}

// TriggerFired is emitted after a trigger's handler ran successfully.
type TriggerFired struct {
	Trigger    *Trigger
	Occurrence int
	NextFireAt *time.Time // nil when the series ended with this firing
	Timestamp  time.Time
}

func (*TriggerFired) eventMarker() {}

// TriggerFailed is emitted when a trigger's handler returns an error.
// The trigger stays scheduled for its next occurrence.
type TriggerFailed struct {
	Trigger   *Trigger
	Error     error
	Timestamp time.Time
}

func (*TriggerFailed) eventMarker() {}

// TriggerExhausted is emitted when a trigger produced its last
// occurrence and was removed from the active schedule.
type TriggerExhausted struct {
	Trigger   *Trigger
	Timestamp time.Time
}

func (*TriggerExhausted) eventMarker() {}

// TriggerCancelled is emitted when a caller cancels a trigger.
type TriggerCancelled struct {
	Trigger   *Trigger
	Timestamp time.Time
}

func (*TriggerCancelled) eventMarker() {}
