package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgSource reads clinic calendar configuration from Postgres.
type PgSource struct {
	db     querier
	logger zerolog.Logger
}

func NewPgSource(db querier, logger zerolog.Logger) *PgSource {
	return &PgSource{db: db, logger: logger}
}

type rangeRow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *PgSource) BusinessHours(ctx context.Context, clinicID uuid.UUID) ([]BusinessHours, error) {
	rows, err := s.db.Query(ctx, `
		SELECT weekday, active, ranges
		FROM business_hours
		WHERE clinic_id = $1
		ORDER BY weekday
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BusinessHours
	for rows.Next() {
		var (
			weekday int
			bh      BusinessHours
			raw     []byte
		)
		if err := rows.Scan(&weekday, &bh.Active, &raw); err != nil {
			return nil, err
		}
		if weekday < 0 || weekday > 6 {
			s.logger.Warn().Str("clinic_id", clinicID.String()).Int("weekday", weekday).Msg("skipping business hours with invalid weekday")
			continue
		}
		bh.Weekday = time.Weekday(weekday)

		var ranges []rangeRow
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ranges); err != nil {
				return nil, fmt.Errorf("decode business hours ranges: %w", err)
			}
		}
		for _, rr := range ranges {
			start, errStart := ParseClock(rr.Start)
			end, errEnd := ParseClock(rr.End)
			if errStart != nil || errEnd != nil {
				s.logger.Warn().
					Str("clinic_id", clinicID.String()).
					Int("weekday", weekday).
					Str("start", rr.Start).
					Str("end", rr.End).
					Msg("skipping unparsable business hours range")
				continue
			}
			bh.Ranges = append(bh.Ranges, TimeRange{Start: start, End: end})
		}
		result = append(result, bh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgSource) Holidays(ctx context.Context, clinicID uuid.UUID) ([]Holiday, error) {
	rows, err := s.db.Query(ctx, `
		SELECT to_char(holiday_date, 'YYYY-MM-DD'), COALESCE(description, '')
		FROM holidays
		WHERE clinic_id = $1
		ORDER BY holiday_date
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Holiday
	for rows.Next() {
		var (
			day string
			h   Holiday
		)
		if err := rows.Scan(&day, &h.Description); err != nil {
			return nil, err
		}
		if h.Date, err = ParseDate(day); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgSource) ScheduleBlocks(ctx context.Context, clinicID uuid.UUID, from, to Date) ([]ScheduleBlock, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, to_char(block_date, 'YYYY-MM-DD'), professional_id, is_clinic_wide, is_full_day,
		       to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), COALESCE(reason, '')
		FROM schedule_blocks
		WHERE clinic_id = $1
		  AND block_date BETWEEN $2::date AND $3::date
		ORDER BY block_date, created_at
	`, clinicID, from.String(), to.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScheduleBlock
	for rows.Next() {
		var (
			b          ScheduleBlock
			day        string
			start, end *string
		)
		if err := rows.Scan(&b.ID, &day, &b.ProfessionalID, &b.ClinicWide, &b.FullDay, &start, &end, &b.Reason); err != nil {
			return nil, err
		}
		if b.Date, err = ParseDate(day); err != nil {
			return nil, err
		}
		b.Start = parseOptionalClock(start)
		b.End = parseOptionalClock(end)
		if !b.FullDay && (b.Start == nil || b.End == nil) {
			s.logger.Warn().Str("block_id", b.ID.String()).Msg("partial schedule block without a time window")
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseOptionalClock(s *string) *Clock {
	if s == nil || *s == "" {
		return nil
	}
	c, err := ParseClock(*s)
	if err != nil {
		return nil
	}
	return &c
}
