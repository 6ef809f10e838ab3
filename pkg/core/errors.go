package core

import "errors"

// Validation and lifecycle errors.
var (
	ErrInvalidTriggerName = errors.New("triggers: invalid trigger name (must be alphanumeric, start with letter)")
	ErrTriggerNameTooLong = errors.New("triggers: trigger name too long")
	ErrPayloadTooLarge    = errors.New("triggers: payload exceeds size limit")
	ErrInvalidSpec        = errors.New("triggers: spec must define exactly one recurrence kind")
	ErrTriggerNotFound    = errors.New("triggers: trigger not found")
	ErrDuplicateTrigger   = errors.New("triggers: trigger with same name already scheduled")
	ErrTriggerNotOwned    = errors.New("triggers: trigger not claimed by this scheduler")
	ErrNoOccurrence       = errors.New("triggers: spec yields no future occurrence")
	ErrNoHandler          = errors.New("triggers: no handler registered for trigger")
)
