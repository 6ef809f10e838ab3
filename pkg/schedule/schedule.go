// Package schedule provides next-fire-time computations for the
// non-match trigger kinds.
//
// This package includes:
//   - Schedule interface for computing the next occurrence
//   - Every() for fixed-interval schedules
//   - Daily() for daily schedules at a specific time
//   - Weekly() for weekly schedules on a specific day and time
//   - Cron() / ParseCron() for cron expression-based schedules
//   - Once() for one-shot schedules
//   - Match() for adapting a calendar-field match rule
//
// Most users should import the root package
// github.com/jdziat/simple-recurring-triggers which re-exports these
// functions.
package schedule

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdziat/simple-recurring-triggers/pkg/match"
)

// Schedule defines when a trigger fires next. A zero return value
// means the schedule has no further occurrence after from.
type Schedule interface {
	Next(from time.Time) time.Time
}

// everySchedule fires at fixed intervals.
type everySchedule struct {
	interval time.Duration
}

// Every creates a schedule that fires at fixed intervals.
func Every(d time.Duration) Schedule {
	return &everySchedule{interval: d}
}

func (s *everySchedule) Next(from time.Time) time.Time {
	return from.Add(s.interval)
}

// dailySchedule fires at a specific time each day.
type dailySchedule struct {
	hour   int
	minute int
}

// Daily creates a schedule that fires at a specific time each day, in
// the location of the instant it is asked to advance from.
func Daily(hour, minute int) Schedule {
	return &dailySchedule{hour: hour, minute: minute}
}

func (s *dailySchedule) Next(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// weeklySchedule fires at a specific day and time each week.
type weeklySchedule struct {
	day    time.Weekday
	hour   int
	minute int
}

// Weekly creates a schedule that fires at a specific day and time each
// week.
func Weekly(day time.Weekday, hour, minute int) Schedule {
	return &weeklySchedule{day: day, hour: hour, minute: minute}
}

func (s *weeklySchedule) Next(from time.Time) time.Time {
	daysUntil := int(s.day - from.Weekday())
	if daysUntil < 0 {
		daysUntil += 7
	}

	next := time.Date(from.Year(), from.Month(), from.Day()+daysUntil, s.hour, s.minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// cronSchedule wraps a cron expression.
type cronSchedule struct {
	schedule cron.Schedule
}

// ParseCron creates a schedule from a standard five-field cron
// expression.
func ParseCron(expr string) (Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return &cronSchedule{schedule: sched}, nil
}

// Cron creates a schedule from a cron expression, panicking on an
// invalid one. Use ParseCron to handle the error instead.
func Cron(expr string) Schedule {
	s, err := ParseCron(expr)
	if err != nil {
		panic("invalid cron expression: " + err.Error())
	}
	return s
}

func (s *cronSchedule) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// onceSchedule fires a single time.
type onceSchedule struct {
	at time.Time
}

// Once creates a schedule that fires once at the given instant.
func Once(at time.Time) Schedule {
	return &onceSchedule{at: at}
}

func (s *onceSchedule) Next(from time.Time) time.Time {
	if s.at.After(from) {
		return s.at
	}
	return time.Time{}
}

// matchSchedule adapts a calendar-field rule. Occurrence counting is
// the caller's concern at this level; the rule's window bound still
// applies.
type matchSchedule struct {
	rule match.Rule
}

// Match creates a schedule from a calendar-field match rule.
func Match(rule match.Rule) Schedule {
	return &matchSchedule{rule: rule}
}

func (s *matchSchedule) Next(from time.Time) time.Time {
	next, ok := s.rule.Next(from, 0)
	if !ok {
		return time.Time{}
	}
	return next
}
