package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-17")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-17", d.String())
	assert.Equal(t, 2, d.Weekday()) // Tuesday

	for _, bad := range []string{"", "2026-2-17", "17-02-2026", "2026-02-30", "2026-13-01", "yesterday"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDateArithmetic(t *testing.T) {
	d, err := ParseDate("2026-01-30")
	require.NoError(t, err)

	assert.Equal(t, "2026-02-01", d.AddDays(2).String())
	assert.Equal(t, "2026-01-29", d.AddDays(-1).String())
	assert.Equal(t, 2, d.AddDays(2).DaysSince(d))

	later := d.AddDays(10)
	assert.True(t, d.Before(later))
	assert.True(t, later.After(d))
	assert.True(t, d.Equal(d.AddDays(0)))
}
