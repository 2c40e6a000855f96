package availability

import (
	"sort"
	"time"
)

// TimeRange is a same-day wall-clock window [Start, End).
type TimeRange struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

func (r TimeRange) Valid() bool {
	return r.Start.Minutes() < r.End.Minutes()
}

// On returns the range as an instant interval on date d.
func (r TimeRange) On(d Date, loc *time.Location) Interval {
	return Interval{Start: r.Start.On(d, loc), End: r.End.On(d, loc)}
}

func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// BusinessHours is the configured opening schedule for one weekday of a clinic.
type BusinessHours struct {
	Weekday time.Weekday `json:"weekday"`
	Active  bool         `json:"active"`
	Ranges  []TimeRange  `json:"ranges"`
}

// DefaultBusinessHours is the schedule used when a clinic has no business
// hours configured at all: Monday to Friday 09:00-18:00, weekends closed.
func DefaultBusinessHours() []BusinessHours {
	workday := []TimeRange{{Start: Clock{Hour: 9}, End: Clock{Hour: 18}}}
	hours := make([]BusinessHours, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		bh := BusinessHours{Weekday: wd}
		if wd != time.Saturday && wd != time.Sunday {
			bh.Active = true
			bh.Ranges = workday
		}
		hours = append(hours, bh)
	}
	return hours
}

// HoursResolver answers which time ranges are open on a given date.
type HoursResolver struct {
	byDay     map[time.Weekday]BusinessHours
	defaulted bool
	dropped   []TimeRange
}

// NewHoursResolver builds a resolver from a clinic's records. An empty record
// set falls back to DefaultBusinessHours; a weekday missing from a non-empty
// set is closed. Ranges with start >= end are dropped and reported by Dropped.
func NewHoursResolver(records []BusinessHours) *HoursResolver {
	r := &HoursResolver{byDay: make(map[time.Weekday]BusinessHours, 7)}
	if len(records) == 0 {
		records = DefaultBusinessHours()
		r.defaulted = true
	}

	for _, rec := range records {
		ranges := make([]TimeRange, 0, len(rec.Ranges))
		for _, tr := range rec.Ranges {
			if !tr.Valid() {
				r.dropped = append(r.dropped, tr)
				continue
			}
			ranges = append(ranges, tr)
		}
		sort.Slice(ranges, func(i, j int) bool {
			return ranges[i].Start.Minutes() < ranges[j].Start.Minutes()
		})
		rec.Ranges = ranges
		r.byDay[rec.Weekday] = rec
	}
	return r
}

// OpenRanges returns the open ranges for d's weekday, sorted by start.
// An empty result means the clinic is closed all day.
func (r *HoursResolver) OpenRanges(d Date) []TimeRange {
	rec, ok := r.byDay[d.Weekday()]
	if !ok || !rec.Active {
		return nil
	}
	return rec.Ranges
}

// Defaulted reports whether the fallback schedule is in use.
func (r *HoursResolver) Defaulted() bool {
	return r.defaulted
}

// Dropped returns the malformed ranges discarded while building the resolver.
func (r *HoursResolver) Dropped() []TimeRange {
	return r.dropped
}
