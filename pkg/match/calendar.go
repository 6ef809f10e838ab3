package match

import "time"

// unit is the calendar granularity added to a candidate that did not
// land after the base instant.
type unit int

const (
	unitNone unit = iota
	unitHour
	unitDay
	unitWeek
	unitMonth
	unitYear
)

func (u unit) addTo(t time.Time) time.Time {
	switch u {
	case unitHour:
		return t.Add(time.Hour)
	case unitDay:
		return t.AddDate(0, 0, 1)
	case unitWeek:
		return t.AddDate(0, 0, 7)
	case unitMonth:
		return t.AddDate(0, 1, 0)
	case unitYear:
		return t.AddDate(1, 0, 0)
	}
	return t
}

// weekdayIndex returns the Monday-based weekday of t:
// 0 for Monday through 6 for Sunday.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// withWeekday moves t to the given Monday-based weekday within the
// week containing t, keeping the time of day.
func withWeekday(t time.Time, wd int) time.Time {
	return t.AddDate(0, 0, wd-weekdayIndex(t))
}

func withMinute(t time.Time, m int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), m, 0, 0, t.Location())
}

func withHour(t time.Time, h int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), h, t.Minute(), 0, 0, t.Location())
}

func withDay(t time.Time, d int) time.Time {
	return time.Date(t.Year(), t.Month(), d, t.Hour(), t.Minute(), 0, 0, t.Location())
}

// withMonth pins a 1-based month. time.Month is also 1-based, but
// values outside 1..12 are legal and normalize into adjacent years.
func withMonth(t time.Time, m int) time.Time {
	return time.Date(t.Year(), time.Month(m), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// startOfWeek returns midnight of the Monday beginning the week of t.
func startOfWeek(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return t.AddDate(0, 0, -weekdayIndex(t))
}

// withWeekOf moves t into week w of the period beginning at first (the
// first day of the matched month or year), keeping t's weekday and
// time of day. Week 1 is the week containing first; weeks begin on
// Monday. The result may fall outside the period: week 1 of a month
// starting mid-week reaches back before the first, and week numbers
// past the period's end roll forward.
func withWeekOf(first, t time.Time, w int) time.Time {
	target := startOfWeek(first).AddDate(0, 0, 7*(w-1)+weekdayIndex(t))
	return time.Date(target.Year(), target.Month(), target.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
