package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestHoursResolverDefaultsOnlyWhenNothingConfigured(t *testing.T) {
	r := NewHoursResolver(nil)
	assert.True(t, r.Defaulted())

	monday := mustDate(t, "2024-06-10")
	saturday := mustDate(t, "2024-06-15")
	sunday := mustDate(t, "2024-06-16")

	assert.Equal(t, []TimeRange{{Start: MustClock("09:00"), End: MustClock("18:00")}}, r.OpenRanges(monday))
	assert.Empty(t, r.OpenRanges(saturday))
	assert.Empty(t, r.OpenRanges(sunday))
}

func TestHoursResolverInactiveDayStaysClosed(t *testing.T) {
	r := NewHoursResolver([]BusinessHours{
		{Weekday: time.Monday, Active: false, Ranges: []TimeRange{{Start: MustClock("09:00"), End: MustClock("18:00")}}},
		{Weekday: time.Tuesday, Active: true, Ranges: []TimeRange{{Start: MustClock("10:00"), End: MustClock("16:00")}}},
	})
	assert.False(t, r.Defaulted())

	assert.Empty(t, r.OpenRanges(mustDate(t, "2024-06-10")), "inactive monday")
	assert.Len(t, r.OpenRanges(mustDate(t, "2024-06-11")), 1)
	assert.Empty(t, r.OpenRanges(mustDate(t, "2024-06-12")), "unconfigured wednesday")
}

func TestHoursResolverNormalizesRanges(t *testing.T) {
	r := NewHoursResolver([]BusinessHours{{
		Weekday: time.Monday,
		Active:  true,
		Ranges: []TimeRange{
			{Start: MustClock("14:00"), End: MustClock("18:00")},
			{Start: MustClock("12:00"), End: MustClock("12:00")},
			{Start: MustClock("08:00"), End: MustClock("12:00")},
		},
	}})

	ranges := r.OpenRanges(mustDate(t, "2024-06-10"))
	require.Len(t, ranges, 2)
	assert.Equal(t, "08:00-12:00", ranges[0].String())
	assert.Equal(t, "14:00-18:00", ranges[1].String())
	assert.Len(t, r.Dropped(), 1)
}
