package match

import (
	"time"

	"github.com/samber/mo"
)

// Rule is an immutable set of calendar-field constraints describing a
// recurring trigger. A present field pins that calendar field on every
// occurrence; an absent field inherits from the base instant or is
// reset to its minimum when a coarser field is pinned.
type Rule struct {
	Minute      mo.Option[int] `json:"minute"`
	Hour        mo.Option[int] `json:"hour"`
	Day         mo.Option[int] `json:"day"`
	Weekday     mo.Option[int] `json:"weekday"`
	WeekOfMonth mo.Option[int] `json:"weekOfMonth"`
	Week        mo.Option[int] `json:"week"`
	Month       mo.Option[int] `json:"month"`

	// Count limits the total number of occurrences.
	// Zero or negative means unbounded.
	Count int `json:"count,omitempty"`

	// Before is an exclusive upper bound on occurrence instants.
	// The zero value means no bound.
	Before time.Time `json:"before,omitzero"`
}

// step pins one rule field on a candidate. Steps run in a fixed order;
// precedence is the order itself, and the unit of the last step whose
// field is present is the one added when the candidate must advance.
// The year and month arguments anchor the period being matched: pinning
// a weekday can spill the candidate into an adjacent month, and the
// week steps must keep matching against the original one.
type step struct {
	present func(Rule) bool
	apply   func(r Rule, t time.Time, year int, month time.Month) time.Time
	unit    unit
}

var steps = []step{
	{
		present: func(r Rule) bool { return r.Minute.IsPresent() },
		apply: func(r Rule, t time.Time, _ int, _ time.Month) time.Time {
			return withMinute(t, r.Minute.MustGet())
		},
		unit: unitHour,
	},
	{
		present: func(r Rule) bool { return r.Hour.IsPresent() },
		apply: func(r Rule, t time.Time, _ int, _ time.Month) time.Time {
			return r.resetTime(withHour(t, r.Hour.MustGet()))
		},
		unit: unitDay,
	},
	{
		present: func(r Rule) bool { return r.Day.IsPresent() },
		apply: func(r Rule, t time.Time, _ int, _ time.Month) time.Time {
			return r.resetTime(withDay(t, r.Day.MustGet()))
		},
		unit: unitMonth,
	},
	{
		present: func(r Rule) bool { return r.Weekday.IsPresent() },
		apply: func(r Rule, t time.Time, _ int, _ time.Month) time.Time {
			return r.resetTime(withWeekday(t, r.Weekday.MustGet()))
		},
		unit: unitWeek,
	},
	{
		present: func(r Rule) bool { return r.WeekOfMonth.IsPresent() },
		apply: func(r Rule, t time.Time, year int, month time.Month) time.Time {
			w := r.WeekOfMonth.MustGet()
			first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
			t = r.resetWeekday(r.resetTime(withWeekOf(first, t, w)))
			if w == 1 {
				// The first week starts at the first of the month, not
				// at a Monday that may belong to the previous month.
				t = time.Date(year, month, 1, t.Hour(), t.Minute(), 0, 0, t.Location())
				t = r.pinWeekdayForward(t)
			}
			return t
		},
		unit: unitMonth,
	},
	{
		present: func(r Rule) bool { return r.Week.IsPresent() },
		apply: func(r Rule, t time.Time, year int, _ time.Month) time.Time {
			w := r.Week.MustGet()
			first := time.Date(year, time.January, 1, 0, 0, 0, 0, t.Location())
			t = r.resetWeekday(r.resetTime(withWeekOf(first, t, w)))
			if w == 1 {
				t = time.Date(year, time.January, 1, t.Hour(), t.Minute(), 0, 0, t.Location())
				t = r.pinWeekdayForward(t)
			}
			return t
		},
		unit: unitYear,
	},
	{
		present: func(r Rule) bool { return r.Month.IsPresent() },
		apply: func(r Rule, t time.Time, _ int, _ time.Month) time.Time {
			return r.resetDay(r.resetTime(withMonth(t, r.Month.MustGet())))
		},
		unit: unitYear,
	},
}

// resetTime zeroes whichever of minute and hour the rule leaves unset,
// so the candidate does not keep arbitrary time-of-day leftovers from
// the base instant.
func (r Rule) resetTime(t time.Time) time.Time {
	if r.Minute.IsAbsent() {
		t = withMinute(t, 0)
	}
	if r.Hour.IsAbsent() {
		t = withHour(t, 0)
	}
	return t
}

// resetDay pins the day of month to 1 unless the rule constrains the
// day or the weekday itself.
func (r Rule) resetDay(t time.Time) time.Time {
	if r.Day.IsPresent() || r.Weekday.IsPresent() {
		return t
	}
	return withDay(t, 1)
}

// resetWeekday moves an unconstrained weekday back to Monday, the
// first day of the week.
func (r Rule) resetWeekday(t time.Time) time.Time {
	if r.Weekday.IsPresent() {
		return t
	}
	return withWeekday(t, 0)
}

// pinWeekdayForward re-applies the weekday constraint only when it
// moves the candidate later into the week. After the day was pinned to
// the first of a month or year, walking back to an earlier weekday
// would land the candidate in the previous period.
func (r Rule) pinWeekdayForward(t time.Time) time.Time {
	wd, ok := r.Weekday.Get()
	if !ok {
		return t
	}
	if weekdayIndex(t) < wd {
		t = withWeekday(t, wd)
	}
	return t
}

// apply pins every present field on the candidate in precedence order
// and reports the coarsest pinned unit. Seconds and finer precision
// are always dropped. unitNone means the rule constrains nothing.
func (r Rule) apply(t time.Time) (time.Time, unit) {
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	year, month := t.Year(), t.Month()

	pinned := unitNone
	for _, s := range steps {
		if !s.present(r) {
			continue
		}
		t = s.apply(r, t, year, month)
		pinned = s.unit
	}
	return t, pinned
}

// Constrained reports whether the rule pins at least one calendar
// field. An unconstrained rule never produces an occurrence.
func (r Rule) Constrained() bool {
	for _, s := range steps {
		if s.present(r) {
			return true
		}
	}
	return false
}

// Exhausted reports whether the rule has produced all occurrences
// allowed by Count, given how many were already emitted.
func (r Rule) Exhausted(occurrence int) bool {
	return r.Count > 0 && occurrence >= r.Count
}

// Next computes the first instant strictly after base that satisfies
// the rule, given the number of occurrences already emitted. The
// second return is false when the series is over: Count is spent, the
// rule constrains nothing, or the candidate does not fall strictly
// before Before.
func (r Rule) Next(base time.Time, occurrence int) (time.Time, bool) {
	if r.Exhausted(occurrence) {
		return time.Time{}, false
	}

	candidate, pinned := r.apply(base)
	if pinned == unitNone {
		return time.Time{}, false
	}

	// Pinning can land on or before the base: with {minute: 10} and a
	// base of 09:30, the naive candidate is 09:10. Jump one coarsest
	// unit and pin again, since adding a coarse unit can knock finer
	// pinned fields loose (adding a year moves weekdays).
	if !candidate.After(base) {
		candidate, _ = r.apply(pinned.addTo(candidate))
	}

	if !r.Before.IsZero() && !candidate.Before(r.Before) {
		return time.Time{}, false
	}
	return candidate, true
}
