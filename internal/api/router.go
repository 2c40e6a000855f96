package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
)

// AppointmentService is the booking surface the HTTP layer drives.
type AppointmentService interface {
	Validate(ctx context.Context, cand appointment.Candidate) ([]availability.Warning, error)
	CheckConflicts(ctx context.Context, cand appointment.Candidate) (appointment.ConflictResult, error)
	Submit(ctx context.Context, cand appointment.Candidate, opts appointment.SubmitOptions) (appointment.Outcome, error)
	SetStatus(ctx context.Context, id uuid.UUID, target appointment.Status, opts appointment.SubmitOptions) (appointment.Outcome, error)
	Cancel(ctx context.Context, id uuid.UUID, mode appointment.CancelMode) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, req appointment.RescheduleRequest, opts appointment.SubmitOptions) (appointment.Outcome, error)
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	List(ctx context.Context, f appointment.ListFilter) ([]appointment.Appointment, error)
}

type RouterConfig struct {
	Service        AppointmentService
	Postgres       Pinger
	Redis          Pinger // nil when Redis is not configured
	Gatherer       prometheus.Gatherer
	Logger         zerolog.Logger
	Location       *time.Location
	RequestTimeout time.Duration
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	h := &handlers{svc: cfg.Service, logger: cfg.Logger, loc: loc}

	// Appointment endpoints
	r.Route("/appointments", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Post("/validate", h.validate)
		r.Post("/conflicts", h.conflicts)
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Patch("/{id}/status", h.setStatus)
		r.Post("/{id}/cancel", h.cancel)
		r.Post("/{id}/reschedule", h.reschedule)
	})

	return r
}
