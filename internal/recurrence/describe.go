package recurrence

import (
	"fmt"
	"strings"
	"time"
)

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Describe renders a short human-readable summary of a rule, e.g.
// "every 2 weeks on Mon, Wed".
func Describe(rule Rule) string {
	switch r := rule.(type) {
	case Daily:
		if r.Interval == 1 {
			return "every day"
		}
		return fmt.Sprintf("every %d days", r.Interval)

	case Weekly:
		prefix := "every week"
		if r.Interval != 1 {
			prefix = fmt.Sprintf("every %d weeks", r.Interval)
		}
		if len(r.DaysOfWeek) == 0 {
			return prefix
		}
		names := make([]string, len(r.DaysOfWeek))
		for i, d := range r.DaysOfWeek {
			names[i] = dayNames[d]
		}
		return prefix + " on " + strings.Join(names, ", ")

	case MonthlyByDate:
		prefix := "every month"
		if r.Interval != 1 {
			prefix = fmt.Sprintf("every %d months", r.Interval)
		}
		return fmt.Sprintf("%s on the %s", prefix, ordinal(r.DayOfMonth))

	case MonthlyByWeekday:
		prefix := "every month"
		if r.Interval != 1 {
			prefix = fmt.Sprintf("every %d months", r.Interval)
		}
		return fmt.Sprintf("%s on the %s %s", prefix, r.WeekPosition, dayNames[r.Weekday])

	case Yearly:
		prefix := "every year"
		if r.Interval != 1 {
			prefix = fmt.Sprintf("every %d years", r.Interval)
		}
		return fmt.Sprintf("%s on %s %d", prefix, time.Month(r.MonthOfYear).String()[:3], r.DayOfMonth)

	default:
		return ""
	}
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
