package core

import (
	"time"

	"github.com/jdziat/simple-recurring-triggers/pkg/match"
	"github.com/jdziat/simple-recurring-triggers/pkg/schedule"
)

// Kind identifies how a trigger computes its next fire time.
type Kind string

const (
	// KindMatch resolves a calendar-field rule (match.Rule).
	KindMatch Kind = "match"
	// KindEvery fires at a fixed interval.
	KindEvery Kind = "every"
	// KindCron fires per a cron expression.
	KindCron Kind = "cron"
	// KindOnce fires a single time.
	KindOnce Kind = "once"
)

// Spec is the serialized recurrence definition of a trigger. Exactly
// one of Match, Every, Cron, and At must be set.
type Spec struct {
	// Match is the calendar-field rule for match triggers. The rule
	// carries its own occurrence count and window bound.
	Match *match.Rule `json:"match,omitempty"`

	// Every is the interval for fixed-interval triggers.
	Every time.Duration `json:"every,omitempty"`

	// Cron is the expression for cron triggers
	// (standard five-field syntax).
	Cron string `json:"cron,omitempty"`

	// At is the fire time for one-shot triggers.
	At *time.Time `json:"at,omitempty"`

	// Count limits occurrences for the every and cron kinds; zero or
	// negative means unbounded. Ignored for match (the rule's own
	// count applies) and once.
	Count int `json:"count,omitempty"`

	// Before is an exclusive upper bound on fire times for the every
	// and cron kinds. Ignored for match.
	Before *time.Time `json:"before,omitempty"`
}

// Kind reports which recurrence kind the spec defines, or empty when
// it defines none.
func (s Spec) Kind() Kind {
	switch {
	case s.Match != nil:
		return KindMatch
	case s.Every > 0:
		return KindEvery
	case s.Cron != "":
		return KindCron
	case s.At != nil:
		return KindOnce
	}
	return ""
}

// Validate checks that the spec defines exactly one recurrence kind
// and that a match rule constrains at least one field.
func (s Spec) Validate() error {
	kinds := 0
	if s.Match != nil {
		kinds++
	}
	if s.Every > 0 {
		kinds++
	}
	if s.Cron != "" {
		kinds++
	}
	if s.At != nil {
		kinds++
	}
	if kinds != 1 {
		return ErrInvalidSpec
	}
	if s.Match != nil && !s.Match.Constrained() {
		return ErrInvalidSpec
	}
	if s.Cron != "" {
		if _, err := schedule.ParseCron(s.Cron); err != nil {
			return ErrInvalidSpec
		}
	}
	return nil
}

// NextFire resolves the fire time that follows base, given that
// occurrence firings already happened. A one-shot's time may lie in
// the past, in which case it fires immediately. The second return is
// false when the series has ended: the count is used up, the window
// closed, or a one-shot already fired.
func (s Spec) NextFire(base time.Time, occurrence int) (time.Time, bool) {
	if s.Exhausted(occurrence) {
		return time.Time{}, false
	}

	var next time.Time
	switch s.Kind() {
	case KindMatch:
		// The rule enforces its own count and window.
		return s.Match.Next(base, occurrence)
	case KindEvery:
		next = base.Add(s.Every)
	case KindCron:
		sched, err := schedule.ParseCron(s.Cron)
		if err != nil {
			return time.Time{}, false
		}
		next = sched.Next(base)
	case KindOnce:
		next = *s.At
	default:
		return time.Time{}, false
	}

	if next.IsZero() {
		return time.Time{}, false
	}
	if s.Before != nil && !next.Before(*s.Before) {
		return time.Time{}, false
	}
	return next, true
}

// Exhausted reports whether the spec has produced all occurrences it
// allows. One-shot triggers exhaust after their single occurrence.
func (s Spec) Exhausted(occurrence int) bool {
	switch s.Kind() {
	case KindMatch:
		return s.Match.Exhausted(occurrence)
	case KindOnce:
		return occurrence >= 1
	default:
		return s.Count > 0 && occurrence >= s.Count
	}
}
