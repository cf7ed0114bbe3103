// Package recurrence implements the pure core of the recurring-task engine:
// calendar dates, the closed set of recurrence rule shapes, occurrence
// enumeration, and end-condition evaluation. Nothing here performs I/O.
package recurrence

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Frequency tags the rule variants.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// WeekPosition selects the Nth occurrence of a weekday within a month.
type WeekPosition string

const (
	WeekFirst  WeekPosition = "first"
	WeekSecond WeekPosition = "second"
	WeekThird  WeekPosition = "third"
	WeekFourth WeekPosition = "fourth"
	WeekLast   WeekPosition = "last"
)

var weekPositionOrdinal = map[WeekPosition]int{
	WeekFirst:  1,
	WeekSecond: 2,
	WeekThird:  3,
	WeekFourth: 4,
}

// Rule is one of the five closed recurrence shapes. The set is sealed:
// only the variants in this package implement it.
type Rule interface {
	Frequency() Frequency
	json.Marshaler

	// appendInRange appends the rule's occurrence dates within
	// [rangeStart, rangeEnd] (inclusive) to out, in ascending order.
	appendInRange(start, rangeStart, rangeEnd Date, out []Date) []Date
}

// Daily repeats every Interval days from the start date.
type Daily struct {
	Interval int
}

// Weekly repeats on DaysOfWeek (Sunday = 0) within every Interval-th week.
// An empty DaysOfWeek is treated as the start date's own weekday, so a
// misconfigured rule still produces a weekly occurrence instead of none.
type Weekly struct {
	Interval   int
	DaysOfWeek []int
}

// MonthlyByDate repeats on DayOfMonth every Interval months. Months shorter
// than DayOfMonth clamp to their last day.
type MonthlyByDate struct {
	Interval   int
	DayOfMonth int
}

// MonthlyByWeekday repeats on the Nth (or last) Weekday of every
// Interval-th month.
type MonthlyByWeekday struct {
	Interval     int
	WeekPosition WeekPosition
	Weekday      int
}

// Yearly repeats on MonthOfYear/DayOfMonth every Interval years, clamping
// the day the same way MonthlyByDate does (Feb 29 -> Feb 28 off leap years).
type Yearly struct {
	Interval    int
	MonthOfYear int
	DayOfMonth  int
}

func (Daily) Frequency() Frequency            { return FreqDaily }
func (Weekly) Frequency() Frequency           { return FreqWeekly }
func (MonthlyByDate) Frequency() Frequency    { return FreqMonthly }
func (MonthlyByWeekday) Frequency() Frequency { return FreqMonthly }
func (Yearly) Frequency() Frequency           { return FreqYearly }

func (r Daily) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"frequency": FreqDaily,
		"interval":  r.Interval,
	})
}

func (r Weekly) MarshalJSON() ([]byte, error) {
	days := r.DaysOfWeek
	if days == nil {
		days = []int{}
	}
	return json.Marshal(map[string]any{
		"frequency":    FreqWeekly,
		"interval":     r.Interval,
		"days_of_week": days,
	})
}

func (r MonthlyByDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"frequency":    FreqMonthly,
		"interval":     r.Interval,
		"day_of_month": r.DayOfMonth,
	})
}

func (r MonthlyByWeekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"frequency":           FreqMonthly,
		"interval":            r.Interval,
		"week_position":       r.WeekPosition,
		"day_of_week_monthly": r.Weekday,
	})
}

func (r Yearly) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"frequency":     FreqYearly,
		"interval":      r.Interval,
		"month_of_year": r.MonthOfYear,
		"day_of_month":  r.DayOfMonth,
	})
}

// ruleProbe is the superset of all wire fields, used to dispatch on shape.
type ruleProbe struct {
	Frequency        Frequency     `json:"frequency"`
	Interval         int           `json:"interval"`
	DaysOfWeek       *[]int        `json:"days_of_week"`
	DayOfMonth       *int          `json:"day_of_month"`
	WeekPosition     *WeekPosition `json:"week_position"`
	DayOfWeekMonthly *int          `json:"day_of_week_monthly"`
	MonthOfYear      *int          `json:"month_of_year"`
}

// ParseRule decodes and validates a recurrence rule. It is the single
// validation boundary for rule shapes: a Rule returned from here is always
// well-formed, so the enumerator never fails.
func ParseRule(data []byte) (Rule, error) {
	var p ruleProbe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode recurrence rule: %w", err)
	}
	if p.Interval < 1 || p.Interval > 365 {
		return nil, fmt.Errorf("interval must be between 1 and 365, got %d", p.Interval)
	}

	switch p.Frequency {
	case FreqDaily:
		return Daily{Interval: p.Interval}, nil

	case FreqWeekly:
		if p.DaysOfWeek == nil {
			return nil, fmt.Errorf("weekly rule requires days_of_week")
		}
		days := make([]int, 0, len(*p.DaysOfWeek))
		days = append(days, *p.DaysOfWeek...)
		for _, d := range days {
			if d < 0 || d > 6 {
				return nil, fmt.Errorf("days_of_week entries must be 0-6, got %d", d)
			}
		}
		sort.Ints(days)
		days = dedupeInts(days)
		return Weekly{Interval: p.Interval, DaysOfWeek: days}, nil

	case FreqMonthly:
		byDate := p.DayOfMonth != nil
		byWeekday := p.WeekPosition != nil || p.DayOfWeekMonthly != nil
		if byDate == byWeekday {
			return nil, fmt.Errorf("monthly rule requires exactly one of day_of_month or week_position/day_of_week_monthly")
		}
		if byDate {
			if *p.DayOfMonth < 1 || *p.DayOfMonth > 31 {
				return nil, fmt.Errorf("day_of_month must be 1-31, got %d", *p.DayOfMonth)
			}
			return MonthlyByDate{Interval: p.Interval, DayOfMonth: *p.DayOfMonth}, nil
		}
		if p.WeekPosition == nil || p.DayOfWeekMonthly == nil {
			return nil, fmt.Errorf("monthly-by-weekday rule requires both week_position and day_of_week_monthly")
		}
		pos := *p.WeekPosition
		if _, ok := weekPositionOrdinal[pos]; !ok && pos != WeekLast {
			return nil, fmt.Errorf("week_position must be first|second|third|fourth|last, got %q", pos)
		}
		if *p.DayOfWeekMonthly < 0 || *p.DayOfWeekMonthly > 6 {
			return nil, fmt.Errorf("day_of_week_monthly must be 0-6, got %d", *p.DayOfWeekMonthly)
		}
		return MonthlyByWeekday{Interval: p.Interval, WeekPosition: pos, Weekday: *p.DayOfWeekMonthly}, nil

	case FreqYearly:
		if p.MonthOfYear == nil || p.DayOfMonth == nil {
			return nil, fmt.Errorf("yearly rule requires month_of_year and day_of_month")
		}
		if *p.MonthOfYear < 1 || *p.MonthOfYear > 12 {
			return nil, fmt.Errorf("month_of_year must be 1-12, got %d", *p.MonthOfYear)
		}
		if *p.DayOfMonth < 1 || *p.DayOfMonth > 31 {
			return nil, fmt.Errorf("day_of_month must be 1-31, got %d", *p.DayOfMonth)
		}
		return Yearly{Interval: p.Interval, MonthOfYear: *p.MonthOfYear, DayOfMonth: *p.DayOfMonth}, nil

	default:
		return nil, fmt.Errorf("unknown frequency %q", p.Frequency)
	}
}

func dedupeInts(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
