package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL      string
	Duration        time.Duration
	Workers         int
	CreateRatio     float64
	ConfirmRatio    float64
	RescheduleRatio float64
	CancelRatio     float64
	AckRatio        float64
	HorizonDays     int
	PostgresDSN     string
	Location        *time.Location
}

// DataPool holds the ids workers draw from. Professionals are few on
// purpose so concurrent creates collide on the same windows.
type DataPool struct {
	ClinicID      uuid.UUID
	Professionals []uuid.UUID
	Patients      []uuid.UUID
	mu            sync.RWMutex
	appointments  []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  zerolog.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", "dev")
		bootLogger.Fatal().Err(err).Msg("failed to load base config")
	}
	logger := logging.New(baseCfg.LogLevel, baseCfg.Env)

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid simulator config")
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("create", cfg.CreateRatio).
		Float64("confirm", cfg.ConfirmRatio).
		Float64("reschedule", cfg.RescheduleRatio).
		Float64("cancel", cfg.CancelRatio).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().
		Str("clinic_id", dataPool.ClinicID.String()).
		Int("professionals", len(dataPool.Professionals)).
		Int("patients", len(dataPool.Patients)).
		Msg("data pool loaded")

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig(base config.Config) SimConfig {
	cfg := SimConfig{
		APIBaseURL:      getEnv("SIM_API_BASE_URL", "http://localhost:"+base.HTTPPort),
		Duration:        getDuration("SIM_DURATION", 30*time.Second),
		Workers:         getInt("SIM_WORKERS", 10),
		CreateRatio:     getFloat("SIM_CREATE_RATIO", 0.4),
		ConfirmRatio:    getFloat("SIM_CONFIRM_RATIO", 0.15),
		RescheduleRatio: getFloat("SIM_RESCHEDULE_RATIO", 0.1),
		CancelRatio:     getFloat("SIM_CANCEL_RATIO", 0.05),
		AckRatio:        getFloat("SIM_ACK_RATIO", 0.5),
		HorizonDays:     getInt("SIM_HORIZON_DAYS", 14),
		PostgresDSN:     base.PostgresDSN,
		Location:        base.ClinicLocation(),
	}

	// Whatever is left over goes to reads.
	writes := cfg.CreateRatio + cfg.ConfirmRatio + cfg.RescheduleRatio + cfg.CancelRatio
	if writes > 1 {
		cfg.CreateRatio /= writes
		cfg.ConfirmRatio /= writes
		cfg.RescheduleRatio /= writes
		cfg.CancelRatio /= writes
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.HorizonDays <= 0 {
		return fmt.Errorf("SIM_HORIZON_DAYS must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool) (*DataPool, error) {
	dp := &DataPool{}

	if raw := os.Getenv("SIM_CLINIC_ID"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SIM_CLINIC_ID: %w", err)
		}
		dp.ClinicID = id
	} else if err := pool.QueryRow(ctx, `
		SELECT clinic_id FROM appointments GROUP BY clinic_id ORDER BY count(*) DESC LIMIT 1
	`).Scan(&dp.ClinicID); err != nil {
		return nil, fmt.Errorf("pick clinic (run the seeder first): %w", err)
	}

	load := func(column string, limit int) ([]uuid.UUID, error) {
		rows, err := pool.Query(ctx,
			"SELECT DISTINCT "+column+" FROM appointments WHERE clinic_id = $1 LIMIT $2",
			dp.ClinicID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var ids []uuid.UUID
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	}

	var err error
	if dp.Professionals, err = load("professional_id", getInt("SIM_PROFESSIONAL_LIMIT", 5)); err != nil {
		return nil, fmt.Errorf("load professionals: %w", err)
	}
	if dp.Patients, err = load("patient_id", getInt("SIM_PATIENT_LIMIT", 200)); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	if len(dp.Professionals) == 0 || len(dp.Patients) == 0 {
		return nil, fmt.Errorf("no professionals or patients found for clinic %s", dp.ClinicID)
	}
	return dp, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	c := s.config

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < c.CreateRatio:
			s.doCreate(ctx, rng)
		case r < c.CreateRatio+c.ConfirmRatio:
			s.doConfirm(ctx, rng)
		case r < c.CreateRatio+c.ConfirmRatio+c.RescheduleRatio:
			s.doReschedule(ctx, rng)
		case r < c.CreateRatio+c.ConfirmRatio+c.RescheduleRatio+c.CancelRatio:
			s.doCancel(ctx, rng)
		default:
			s.doRead(ctx, rng)
		}
	}
}

// randomWindow picks a 30 minute window on the half hour between 07:00
// and 19:00 clinic time, so some land outside business hours and warn.
func (s *Simulator) randomWindow(rng *rand.Rand) (time.Time, time.Time) {
	now := time.Now().In(s.config.Location)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.config.Location).
		AddDate(0, 0, 1+rng.Intn(s.config.HorizonDays))
	start := day.Add(7*time.Hour + time.Duration(rng.Intn(24))*30*time.Minute)
	return start, start.Add(30 * time.Minute)
}

func (s *Simulator) doCreate(ctx context.Context, rng *rand.Rand) {
	start, end := s.randomWindow(rng)
	body := map[string]any{
		"clinic_id":            s.pool.ClinicID,
		"professional_id":      s.pool.Professionals[rng.Intn(len(s.pool.Professionals))],
		"patient_id":           s.pool.Patients[rng.Intn(len(s.pool.Patients))],
		"title":                "Simulated consultation",
		"start_at":             start,
		"end_at":               end,
		"acknowledge_warnings": rng.Float64() < s.config.AckRatio,
	}

	began := time.Now()
	res, payload := s.send(ctx, http.MethodPost, "/appointments", body)
	s.metrics.Create.Record(time.Since(began), res)

	if res == resultSaved {
		s.trackSaved(payload)
	}
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	began := time.Now()
	res, _ := s.send(ctx, http.MethodPatch, "/appointments/"+id.String()+"/status", map[string]any{
		"status":               "confirmed",
		"acknowledge_warnings": true,
	})
	s.metrics.Confirm.Record(time.Since(began), res)
}

func (s *Simulator) doReschedule(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	start, end := s.randomWindow(rng)
	began := time.Now()
	res, payload := s.send(ctx, http.MethodPost, "/appointments/"+id.String()+"/reschedule", map[string]any{
		"start_at":             start,
		"end_at":               end,
		"acknowledge_warnings": rng.Float64() < s.config.AckRatio,
	})
	s.metrics.Reschedule.Record(time.Since(began), res)

	if res == resultSaved {
		s.trackSaved(payload)
	}
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	began := time.Now()
	res, _ := s.send(ctx, http.MethodPost, "/appointments/"+id.String()+"/cancel", map[string]any{"mode": "cancel"})
	s.metrics.Cancel.Record(time.Since(began), res)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	var path string
	switch rng.Intn(3) {
	case 0:
		id, ok := s.pool.RandomAppointment(rng)
		if !ok {
			return
		}
		path = "/appointments/" + id.String()
	case 1:
		path = "/appointments?limit=20&patient_id=" + s.pool.Patients[rng.Intn(len(s.pool.Patients))].String()
	default:
		path = "/appointments?limit=20&professional_id=" + s.pool.Professionals[rng.Intn(len(s.pool.Professionals))].String()
	}
	began := time.Now()
	res, _ := s.send(ctx, http.MethodGet, path, nil)
	s.metrics.Read.Record(time.Since(began), res)
}

func (s *Simulator) trackSaved(payload []byte) {
	var out struct {
		Appointment struct {
			ID uuid.UUID `json:"id"`
		} `json:"appointment"`
	}
	if err := json.Unmarshal(payload, &out); err == nil && out.Appointment.ID != uuid.Nil {
		s.pool.AddAppointment(out.Appointment.ID)
	}
}

func (s *Simulator) send(ctx context.Context, method, path string, body any) (result, []byte) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return resultError, nil
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return resultError, nil
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("request failed")
		}
		return resultError, nil
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)

	return classify(resp.StatusCode, payload), payload
}

func classify(status int, payload []byte) result {
	switch {
	case status >= 200 && status < 300:
		return resultSaved
	case status == http.StatusPreconditionRequired:
		return resultPrompt
	case status == http.StatusConflict:
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &e) == nil && e.Error == "booking_in_progress" {
			return resultBusy
		}
		return resultBlocked
	}
	return resultError
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
