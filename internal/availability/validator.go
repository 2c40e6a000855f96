package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// WarningCode identifies which soft rule a Warning came from.
type WarningCode string

const (
	WarningHoliday       WarningCode = "holiday"
	WarningClosedDay     WarningCode = "closed_day"
	WarningOutsideHours  WarningCode = "outside_hours"
	WarningScheduleBlock WarningCode = "schedule_block"
)

// Warning is a soft policy violation. It never blocks a save on its own but
// must be acknowledged before the booking is committed.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return w.Message
}

// Request is the slice of a candidate appointment the validator looks at.
type Request struct {
	ClinicID       uuid.UUID
	ProfessionalID uuid.UUID
	Start          time.Time
	End            time.Time
}

// CalendarSource loads the clinic calendar configuration.
type CalendarSource interface {
	BusinessHours(ctx context.Context, clinicID uuid.UUID) ([]BusinessHours, error)
	Holidays(ctx context.Context, clinicID uuid.UUID) ([]Holiday, error)
	ScheduleBlocks(ctx context.Context, clinicID uuid.UUID, from, to Date) ([]ScheduleBlock, error)
}

// Calendar is an immutable snapshot of everything the soft rules need.
type Calendar struct {
	Hours    *HoursResolver
	Holidays *HolidayRegistry
	Blocks   *BlockRegistry
	Location *time.Location
}

// Evaluate runs the holiday, business-hours and schedule-block checks in that
// order and returns every warning found. It has no side effects.
func (c Calendar) Evaluate(req Request) []Warning {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	date := DateOf(req.Start, loc)
	candidate := Interval{Start: req.Start, End: req.End}

	var warnings []Warning

	if c.Holidays != nil {
		if h, ok := c.Holidays.Lookup(date); ok {
			desc := strings.TrimSpace(h.Description)
			if desc == "" {
				desc = "holiday"
			}
			warnings = append(warnings, Warning{
				Code:    WarningHoliday,
				Message: fmt.Sprintf("%s is a holiday (%s)", date, desc),
			})
		}
	}

	if c.Hours != nil {
		ranges := c.Hours.OpenRanges(date)
		if len(ranges) == 0 {
			warnings = append(warnings, Warning{
				Code:    WarningClosedDay,
				Message: fmt.Sprintf("The clinic is closed all day on %s", date.Weekday()),
			})
		} else if !withinAnyRange(ranges, date, candidate, loc) {
			labels := make([]string, 0, len(ranges))
			for _, r := range ranges {
				labels = append(labels, r.String())
			}
			warnings = append(warnings, Warning{
				Code: WarningOutsideHours,
				Message: fmt.Sprintf("%s-%s is outside business hours on %s (open: %s)",
					ClockOf(req.Start, loc), ClockOf(req.End, loc), date.Weekday(), strings.Join(labels, ", ")),
			})
		}
	}

	if c.Blocks != nil {
		if b, ok := c.Blocks.FirstMatch(date, req.ProfessionalID, candidate, loc); ok {
			reason := strings.TrimSpace(b.Reason)
			if reason == "" {
				reason = "no reason given"
			}
			warnings = append(warnings, Warning{
				Code:    WarningScheduleBlock,
				Message: fmt.Sprintf("The schedule is blocked at this time (%s)", reason),
			})
		}
	}

	return warnings
}

func withinAnyRange(ranges []TimeRange, date Date, candidate Interval, loc *time.Location) bool {
	for _, r := range ranges {
		if r.On(date, loc).Contains(candidate) {
			return true
		}
	}
	return false
}

// Validator loads a Calendar for each request and evaluates it.
type Validator struct {
	source CalendarSource
	loc    *time.Location
	logger zerolog.Logger
}

func NewValidator(source CalendarSource, loc *time.Location, logger zerolog.Logger) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{source: source, loc: loc, logger: logger}
}

// Location is the clinic time zone used for wall-clock and date rules.
func (v *Validator) Location() *time.Location {
	return v.loc
}

// Load fetches the calendar snapshot relevant to req.
func (v *Validator) Load(ctx context.Context, req Request) (Calendar, error) {
	date := DateOf(req.Start, v.loc)

	var (
		hours    []BusinessHours
		holidays []Holiday
		blocks   []ScheduleBlock
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hours, err = v.source.BusinessHours(gctx, req.ClinicID)
		if err != nil {
			return fmt.Errorf("fetch business hours: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		holidays, err = v.source.Holidays(gctx, req.ClinicID)
		if err != nil {
			return fmt.Errorf("fetch holidays: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		blocks, err = v.source.ScheduleBlocks(gctx, req.ClinicID, date, date)
		if err != nil {
			return fmt.Errorf("fetch schedule blocks: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Calendar{}, err
	}

	resolver := NewHoursResolver(hours)
	if dropped := resolver.Dropped(); len(dropped) > 0 {
		v.logger.Warn().
			Str("clinic_id", req.ClinicID.String()).
			Int("dropped", len(dropped)).
			Msg("ignoring malformed business hours ranges")
	}
	if resolver.Defaulted() {
		v.logger.Debug().Str("clinic_id", req.ClinicID.String()).Msg("no business hours configured, using default schedule")
	}

	return Calendar{
		Hours:    resolver,
		Holidays: NewHolidayRegistry(holidays),
		Blocks:   NewBlockRegistry(blocks),
		Location: v.loc,
	}, nil
}

// Validate returns the soft warnings for req. An empty result means the
// candidate complies with every soft rule; it says nothing about double booking.
func (v *Validator) Validate(ctx context.Context, req Request) ([]Warning, error) {
	cal, err := v.Load(ctx, req)
	if err != nil {
		return nil, err
	}
	return cal.Evaluate(req), nil
}
