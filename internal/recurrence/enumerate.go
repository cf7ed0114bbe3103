package recurrence

import (
	"sort"
	"time"
)

// OccurrencesInRange returns every occurrence of the rule within
// [rangeStart, rangeEnd], both inclusive, in ascending order. start is the
// rule's first eligible date; occurrences before it are never emitted. An
// empty result is legitimate, not an error.
func OccurrencesInRange(rule Rule, start, rangeStart, rangeEnd Date) []Date {
	if rangeEnd.Before(rangeStart) {
		return nil
	}
	return rule.appendInRange(start, rangeStart, rangeEnd, nil)
}

// NextOccurrence returns the first occurrence strictly after the given
// date, searching up to two years ahead.
func NextOccurrence(rule Rule, start, after Date) (Date, bool) {
	occ := OccurrencesInRange(rule, start, after.AddDays(1), after.AddDays(731))
	if len(occ) == 0 {
		return Date{}, false
	}
	return occ[0], true
}

func (r Daily) appendInRange(start, rangeStart, rangeEnd Date, out []Date) []Date {
	current := start
	// Fast-forward in whole-interval steps when the rule starts before
	// the range.
	if current.Before(rangeStart) {
		skip := rangeStart.DaysSince(start) / r.Interval * r.Interval
		current = start.AddDays(skip)
		if current.Before(rangeStart) {
			current = current.AddDays(r.Interval)
		}
	}
	for !current.After(rangeEnd) {
		if !current.Before(rangeStart) {
			out = append(out, current)
		}
		current = current.AddDays(r.Interval)
	}
	return out
}

func (r Weekly) appendInRange(start, rangeStart, rangeEnd Date, out []Date) []Date {
	days := r.DaysOfWeek
	if len(days) == 0 {
		days = []int{start.Weekday()}
	}
	// Emission walks each week in days order, so the ascending-output
	// contract needs the days sorted regardless of how the rule was built.
	if !sort.IntsAreSorted(days) {
		days = append([]int(nil), days...)
		sort.Ints(days)
	}

	// Walk interval-week blocks from the Sunday of the start date's week.
	weekStart := start.AddDays(-start.Weekday())
	if weekStart.Before(rangeStart) {
		weeks := rangeStart.DaysSince(weekStart) / 7
		skip := weeks / r.Interval * r.Interval
		weekStart = weekStart.AddDays(skip * 7)
	}

	for {
		for _, dow := range days {
			d := weekStart.AddDays(dow)
			if !d.Before(start) && !d.Before(rangeStart) && !d.After(rangeEnd) {
				out = append(out, d)
			}
		}
		weekStart = weekStart.AddDays(7 * r.Interval)
		if weekStart.After(rangeEnd) {
			return out
		}
	}
}

func (r MonthlyByDate) appendInRange(start, rangeStart, rangeEnd Date, out []Date) []Date {
	for i := monthOffset(start, rangeStart, r.Interval); ; i += r.Interval {
		anchor := NewDate(start.Year(), start.Month()+time.Month(i), 1)
		if anchor.After(rangeEnd) {
			return out
		}
		day := min(r.DayOfMonth, daysInMonth(anchor.Year(), anchor.Month()))
		d := NewDate(anchor.Year(), anchor.Month(), day)
		if d.After(rangeEnd) {
			return out
		}
		if !d.Before(start) && !d.Before(rangeStart) {
			out = append(out, d)
		}
	}
}

func (r MonthlyByWeekday) appendInRange(start, rangeStart, rangeEnd Date, out []Date) []Date {
	for i := monthOffset(start, rangeStart, r.Interval); ; i += r.Interval {
		anchor := NewDate(start.Year(), start.Month()+time.Month(i), 1)
		if anchor.After(rangeEnd) {
			return out
		}
		d, ok := nthWeekdayOfMonth(anchor.Year(), anchor.Month(), r.WeekPosition, r.Weekday)
		if !ok {
			continue
		}
		if d.After(rangeEnd) {
			return out
		}
		if !d.Before(start) && !d.Before(rangeStart) {
			out = append(out, d)
		}
	}
}

func (r Yearly) appendInRange(start, rangeStart, rangeEnd Date, out []Date) []Date {
	yearOffset := 0
	if rangeStart.Year() > start.Year() {
		diff := rangeStart.Year() - start.Year()
		yearOffset = diff / r.Interval * r.Interval
	}
	for i := yearOffset; ; i += r.Interval {
		year := start.Year() + i
		month := time.Month(r.MonthOfYear)
		day := min(r.DayOfMonth, daysInMonth(year, month))
		d := NewDate(year, month, day)
		if d.After(rangeEnd) {
			return out
		}
		if !d.Before(start) && !d.Before(rangeStart) {
			out = append(out, d)
		}
	}
}

// monthOffset fast-forwards a monthly walk to the interval step nearest
// rangeStart, measured in months from the start date's month.
func monthOffset(start, rangeStart Date, interval int) int {
	startMonths := start.Year()*12 + int(start.Month()) - 1
	rangeMonths := rangeStart.Year()*12 + int(rangeStart.Month()) - 1
	if rangeMonths <= startMonths {
		return 0
	}
	return (rangeMonths - startMonths) / interval * interval
}

// nthWeekdayOfMonth finds the Nth (or last) occurrence of a weekday in a
// month. A fifth occurrence does not exist in every month, but first
// through fourth always do.
func nthWeekdayOfMonth(year int, month time.Month, pos WeekPosition, weekday int) (Date, bool) {
	if pos == WeekLast {
		for d := daysInMonth(year, month); d >= 1; d-- {
			date := NewDate(year, month, d)
			if date.Weekday() == weekday {
				return date, true
			}
		}
		return Date{}, false
	}

	target, ok := weekPositionOrdinal[pos]
	if !ok {
		return Date{}, false
	}
	count := 0
	for d := 1; d <= daysInMonth(year, month); d++ {
		date := NewDate(year, month, d)
		if date.Weekday() == weekday {
			count++
			if count == target {
				return date, true
			}
		}
	}
	return Date{}, false
}
