package availability

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleBlock is a blackout window, either clinic-wide or for one professional.
type ScheduleBlock struct {
	ID             uuid.UUID  `json:"id"`
	Date           Date       `json:"date"`
	ProfessionalID *uuid.UUID `json:"professional_id,omitempty"`
	ClinicWide     bool       `json:"is_clinic_wide"`
	FullDay        bool       `json:"is_full_day"`
	Start          *Clock     `json:"start_time,omitempty"`
	End            *Clock     `json:"end_time,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// Window returns the block's time window on its own date. ok is false for
// full-day blocks and for partial blocks missing a valid start/end pair.
func (b ScheduleBlock) Window(loc *time.Location) (Interval, bool) {
	if b.FullDay || b.Start == nil || b.End == nil {
		return Interval{}, false
	}
	if b.Start.Minutes() >= b.End.Minutes() {
		return Interval{}, false
	}
	return Interval{Start: b.Start.On(b.Date, loc), End: b.End.On(b.Date, loc)}, true
}

// Applies reports whether the block covers a candidate for professionalID
// occupying candidate on date.
func (b ScheduleBlock) Applies(date Date, professionalID uuid.UUID, candidate Interval, loc *time.Location) bool {
	if b.Date != date {
		return false
	}
	if !b.ClinicWide && (b.ProfessionalID == nil || *b.ProfessionalID != professionalID) {
		return false
	}
	if b.FullDay {
		return true
	}
	window, ok := b.Window(loc)
	if !ok {
		return false
	}
	return window.Overlaps(candidate)
}

// BlockRegistry holds the blocks loaded for a date range, in load order.
type BlockRegistry struct {
	blocks []ScheduleBlock
}

func NewBlockRegistry(blocks []ScheduleBlock) *BlockRegistry {
	return &BlockRegistry{blocks: blocks}
}

// FirstMatch returns the first block that applies to the candidate.
func (r *BlockRegistry) FirstMatch(date Date, professionalID uuid.UUID, candidate Interval, loc *time.Location) (ScheduleBlock, bool) {
	for _, b := range r.blocks {
		if b.Applies(date, professionalID, candidate, loc) {
			return b, true
		}
	}
	return ScheduleBlock{}, false
}
