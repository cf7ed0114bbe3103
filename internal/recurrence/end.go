package recurrence

// EndType bounds how many occurrences a template will ever produce.
type EndType string

const (
	EndNever      EndType = "never"
	EndAfterCount EndType = "after_count"
	EndOnDate     EndType = "on_date"
)

// ValidEndType reports whether s names a known end policy.
func ValidEndType(s string) bool {
	switch EndType(s) {
	case EndNever, EndAfterCount, EndOnDate:
		return true
	}
	return false
}

// EndCondition is a template's end policy. Count is the occurrence limit
// for EndAfterCount; Date is the final eligible date for EndOnDate.
type EndCondition struct {
	Type  EndType
	Count int
	Date  Date
}

// Allows reports whether generation may materialize candidate as the next
// occurrence, given how many occurrences exist already. It is evaluated per
// candidate date so a window spanning the boundary truncates mid-batch.
func (c EndCondition) Allows(generated int, candidate Date) bool {
	switch c.Type {
	case EndAfterCount:
		return generated < c.Count
	case EndOnDate:
		return !candidate.After(c.Date)
	default:
		return true
	}
}
