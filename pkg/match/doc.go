// Package match resolves the next occurrence of a rule-based trigger.
//
// A Rule pins a sparse set of calendar fields (minute, hour, day,
// weekday, week of month, week of year, month). Resolving a rule
// against a base instant walks the fields in a fixed precedence order,
// pins each present field on a candidate, and resets the finer fields
// the rule leaves unset. When the candidate does not land after the
// base, one unit of the coarsest pinned field is added and the fields
// are pinned again.
//
// Conventions:
//   - Weekdays are zero-based starting at Monday; weeks begin on Monday.
//   - Week 1 of a month or year is the week containing its first day.
//   - Months are 1-based (January = 1).
//   - Out-of-range field values roll forward into the next unit via
//     time.Date normalization; they are never clamped.
//
// The resolver is pure: rules are immutable values and every call is
// independent, so concurrent resolution needs no locking.
package match
