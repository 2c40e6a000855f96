package availability

// Holiday marks a calendar date on which the clinic is normally closed.
type Holiday struct {
	Date        Date   `json:"date"`
	Description string `json:"description"`
}

// HolidayRegistry indexes a clinic's holidays by date.
type HolidayRegistry struct {
	byDate map[Date]Holiday
}

func NewHolidayRegistry(holidays []Holiday) *HolidayRegistry {
	r := &HolidayRegistry{byDate: make(map[Date]Holiday, len(holidays))}
	for _, h := range holidays {
		if _, dup := r.byDate[h.Date]; dup {
			continue
		}
		r.byDate[h.Date] = h
	}
	return r
}

// Lookup reports whether d is a holiday. The first record for a date wins.
func (r *HolidayRegistry) Lookup(d Date) (Holiday, bool) {
	h, ok := r.byDate[d]
	return h, ok
}
