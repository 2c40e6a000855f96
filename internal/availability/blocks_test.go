package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func clockPtr(s string) *Clock {
	c := MustClock(s)
	return &c
}

func TestScheduleBlockApplies(t *testing.T) {
	day := mustDate(t, "2024-06-10")
	pro := uuid.New()
	other := uuid.New()
	candidate := Interval{at(10, 0), at(10, 30)}

	fullDayForPro := ScheduleBlock{Date: day, ProfessionalID: &pro, FullDay: true}
	assert.True(t, fullDayForPro.Applies(day, pro, candidate, time.UTC))
	assert.False(t, fullDayForPro.Applies(day, other, candidate, time.UTC))
	assert.False(t, fullDayForPro.Applies(mustDate(t, "2024-06-11"), pro, candidate, time.UTC))

	clinicWide := ScheduleBlock{Date: day, ClinicWide: true, Start: clockPtr("09:00"), End: clockPtr("10:00")}
	assert.False(t, clinicWide.Applies(day, other, candidate, time.UTC), "ends exactly when candidate starts")
	assert.True(t, clinicWide.Applies(day, other, Interval{at(9, 45), at(10, 15)}, time.UTC))

	noOwner := ScheduleBlock{Date: day, FullDay: true}
	assert.False(t, noOwner.Applies(day, pro, candidate, time.UTC), "no professional and not clinic-wide")

	malformed := ScheduleBlock{Date: day, ClinicWide: true, Start: clockPtr("11:00")}
	assert.False(t, malformed.Applies(day, pro, Interval{at(11, 0), at(12, 0)}, time.UTC))
}

func TestBlockRegistryFirstMatch(t *testing.T) {
	day := mustDate(t, "2024-06-10")
	pro := uuid.New()

	reg := NewBlockRegistry([]ScheduleBlock{
		{Date: day, ClinicWide: true, Start: clockPtr("08:00"), End: clockPtr("09:00"), Reason: "staff meeting"},
		{Date: day, ProfessionalID: &pro, Start: clockPtr("10:00"), End: clockPtr("11:00"), Reason: "training"},
		{Date: day, ClinicWide: true, FullDay: true, Reason: "inventory"},
	})

	b, ok := reg.FirstMatch(day, pro, Interval{at(10, 15), at(10, 45)}, time.UTC)
	assert.True(t, ok)
	assert.Equal(t, "training", b.Reason)

	b, ok = reg.FirstMatch(day, uuid.New(), Interval{at(10, 15), at(10, 45)}, time.UTC)
	assert.True(t, ok)
	assert.Equal(t, "inventory", b.Reason)
}
