package core

import (
	"errors"
	"testing"
	"time"
)

func TestEventTypes_ImplementEvent(t *testing.T) {
	trigger := &Trigger{ID: "t1"}
	now := time.Now()

	events := []Event{
		&TriggerScheduled{Trigger: trigger, FireAt: now, Timestamp: now},
		&TriggerFired{Trigger: trigger, Occurrence: 1, Timestamp: now},
		&TriggerFailed{Trigger: trigger, Error: errors.New("boom"), Timestamp: now},
		&TriggerExhausted{Trigger: trigger, Timestamp: now},
		&TriggerCancelled{Trigger: trigger, Timestamp: now},
	}

	for _, e := range events {
		if e == nil {
			t.Fatal("nil event")
		}
	}
}
