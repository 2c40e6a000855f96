package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 10, hour, minute, 0, 0, time.UTC)
}

func TestOverlapsBoundaries(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"back to back", Interval{at(10, 0), at(10, 30)}, Interval{at(10, 30), at(11, 0)}, false},
		{"partial overlap", Interval{at(10, 0), at(10, 30)}, Interval{at(10, 15), at(10, 45)}, true},
		{"contained", Interval{at(9, 0), at(12, 0)}, Interval{at(10, 0), at(10, 30)}, true},
		{"identical", Interval{at(10, 0), at(10, 30)}, Interval{at(10, 0), at(10, 30)}, true},
		{"disjoint", Interval{at(8, 0), at(9, 0)}, Interval{at(10, 0), at(11, 0)}, false},
		{"one minute overlap", Interval{at(10, 0), at(10, 31)}, Interval{at(10, 30), at(11, 0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.a.Overlaps(tt.b), tt.b.Overlaps(tt.a), "overlap must be symmetric")
		})
	}
}

func TestIntervalContains(t *testing.T) {
	day := Interval{at(9, 0), at(18, 0)}

	assert.True(t, day.Contains(Interval{at(9, 0), at(18, 0)}))
	assert.True(t, day.Contains(Interval{at(17, 30), at(18, 0)}))
	assert.False(t, day.Contains(Interval{at(17, 30), at(18, 1)}))
	assert.False(t, day.Contains(Interval{at(8, 59), at(9, 30)}))
}
