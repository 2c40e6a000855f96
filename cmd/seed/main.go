package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

type seedRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func main() {
	_ = godotenv.Load()
	logger := logging.New(getEnv("LOG_LEVEL", "info"), getEnv("APP_ENV", "dev"))
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if seed, err := strconv.ParseInt(os.Getenv("SEED"), 10, 64); err == nil {
		gofakeit.Seed(seed)
	} else {
		gofakeit.Seed(time.Now().UnixNano())
	}

	clinicID := uuid.New()
	if raw := os.Getenv("SEED_CLINIC_ID"); raw != "" {
		if clinicID, err = uuid.Parse(raw); err != nil {
			logger.Fatal().Err(err).Msg("invalid SEED_CLINIC_ID")
		}
	}
	professionals := make([]uuid.UUID, getInt("SEED_PROFESSIONALS", 10))
	for i := range professionals {
		professionals[i] = uuid.New()
	}
	patients := make([]uuid.UUID, getInt("SEED_PATIENTS", 500))
	for i := range patients {
		patients[i] = uuid.New()
	}

	logger = logger.With().Str("clinic_id", clinicID.String()).Logger()
	bg := context.Background()

	if err := seedCalendar(bg, pool, logger, clinicID, professionals); err != nil {
		logger.Fatal().Err(err).Msg("seed calendar")
	}
	if err := seedAppointments(bg, pool, logger, clinicID, professionals, patients, getInt("SEED_DAYS", 14)); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}

	logger.Info().Msg("seed complete")
}

func seedCalendar(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, clinicID uuid.UUID, professionals []uuid.UUID) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	weekdayRanges, err := json.Marshal([]seedRange{{"08:00", "12:00"}, {"13:00", "18:00"}})
	if err != nil {
		return err
	}
	saturdayRanges, err := json.Marshal([]seedRange{{"08:00", "12:00"}})
	if err != nil {
		return err
	}

	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		ranges, active := weekdayRanges, true
		switch wd {
		case time.Sunday:
			ranges, active = []byte("[]"), false
		case time.Saturday:
			ranges = saturdayRanges
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO business_hours (clinic_id, weekday, active, ranges)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (clinic_id, weekday) DO UPDATE
			SET active = EXCLUDED.active, ranges = EXCLUDED.ranges, updated_at = now()
		`, clinicID, int(wd), active, ranges); err != nil {
			return err
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 0; i < 3; i++ {
		day := today.AddDate(0, 0, gofakeit.Number(7, 90))
		if _, err := tx.Exec(ctx, `
			INSERT INTO holidays (clinic_id, holiday_date, description)
			VALUES ($1, $2, $3)
			ON CONFLICT (clinic_id, holiday_date) DO NOTHING
		`, clinicID, day, gofakeit.Noun()+" day"); err != nil {
			return err
		}
	}

	// One clinic-wide lunch meeting plus a partial block per professional.
	if _, err := tx.Exec(ctx, `
		INSERT INTO schedule_blocks (clinic_id, block_date, is_clinic_wide, is_full_day, start_time, end_time, reason)
		VALUES ($1, $2, TRUE, FALSE, '12:00', '13:30', 'Staff meeting')
	`, clinicID, today.AddDate(0, 0, 2)); err != nil {
		return err
	}
	for _, prof := range professionals {
		startHour := gofakeit.Number(8, 16)
		if _, err := tx.Exec(ctx, `
			INSERT INTO schedule_blocks (clinic_id, block_date, professional_id, is_full_day, start_time, end_time, reason)
			VALUES ($1, $2, $3, FALSE, $4, $5, $6)
		`, clinicID, today.AddDate(0, 0, gofakeit.Number(1, 14)), prof,
			clockString(startHour, 0), clockString(startHour+1, 0), "Personal time"); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	logger.Info().Int("professionals", len(professionals)).Msg("calendar seeded")
	return nil
}

// seedAppointments fills each professional's mornings with back-to-back
// 30 minute slots so the no-overlap constraint always holds.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger, clinicID uuid.UUID, professionals, patients []uuid.UUID, days int) error {
	statuses := []string{"scheduled", "scheduled", "confirmed"}
	start := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	total := 0

	for _, prof := range professionals {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for d := 0; d < days; d++ {
			day := start.AddDate(0, 0, d)
			if day.Weekday() == time.Sunday {
				continue
			}
			slot := day.Add(8 * time.Hour)
			count := gofakeit.Number(2, 6)
			for s := 0; s < count; s++ {
				slot = slot.Add(time.Duration(gofakeit.Number(0, 1)) * 30 * time.Minute)
				end := slot.Add(30 * time.Minute)
				if err := insertAppointment(ctx, tx, clinicID, prof, patients[gofakeit.Number(0, len(patients)-1)],
					slot, end, statuses[gofakeit.Number(0, len(statuses)-1)]); err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				slot = end
				total++
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	logger.Info().Int("appointments", total).Msg("appointments seeded")
	return nil
}

func insertAppointment(ctx context.Context, tx pgx.Tx, clinicID, prof, patient uuid.UUID, start, end time.Time, status string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments (clinic_id, patient_id, professional_id, title, description, start_at, end_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, clinicID, patient, prof, "Consultation with "+gofakeit.Name(), "Follow-up on "+gofakeit.Noun(), start, end, status)
	return err
}

func clockString(hour, minute int) string {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
