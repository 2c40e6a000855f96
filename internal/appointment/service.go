package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

const (
	EventAppointmentCreated            = "APPOINTMENT_CREATED"
	EventAppointmentUpdated            = "APPOINTMENT_UPDATED"
	EventAppointmentStatusChanged      = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentCancelled          = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled        = "APPOINTMENT_RESCHEDULED"
	EventAppointmentRetroCompleted     = "APPOINTMENT_RETRO_COMPLETED"
	EventAppointmentWarningsOverridden = "APPOINTMENT_WARNINGS_OVERRIDDEN"
)

const auditNotePrefix = "Saved despite warnings: "

var tracer = otel.Tracer("clinic.internal.appointment")

// OutcomeKind says how a submission ended.
type OutcomeKind uint8

const (
	OutcomeSaved OutcomeKind = iota + 1
	OutcomeHardBlocked
	OutcomeNeedsWarningAck
	OutcomeNeedsRetroactiveAck
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSaved:
		return "saved"
	case OutcomeHardBlocked:
		return "hard_blocked"
	case OutcomeNeedsWarningAck:
		return "needs_warning_ack"
	case OutcomeNeedsRetroactiveAck:
		return "needs_retroactive_ack"
	}
	return "unknown"
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of a save attempt. Appointment is set only when
// Kind is OutcomeSaved; Origin is the superseded booking after a reschedule.
type Outcome struct {
	Kind        OutcomeKind            `json:"kind"`
	Appointment *Appointment           `json:"appointment,omitempty"`
	Origin      *Appointment           `json:"origin,omitempty"`
	Conflicts   ConflictResult         `json:"conflicts"`
	Warnings    []availability.Warning `json:"warnings,omitempty"`
}

// SubmitOptions carries the caller's answers to earlier prompts.
type SubmitOptions struct {
	AcknowledgeWarnings bool
	ConfirmRetroactive  bool
}

// CancelMode is the caller's answer to the cancel fork.
type CancelMode uint8

const (
	CancelJustCancel CancelMode = iota + 1
	CancelAndReschedule
)

// ParseCancelMode accepts "cancel" and "reschedule".
func ParseCancelMode(s string) (CancelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cancel", "just_cancel":
		return CancelJustCancel, nil
	case "reschedule":
		return CancelAndReschedule, nil
	}
	return 0, fmt.Errorf("unknown cancel mode %q", s)
}

// RescheduleRequest is the new time for a booking being moved.
type RescheduleRequest struct {
	Start       time.Time
	End         time.Time
	Description *string
}

// Validator is the soft-rule checker the service consults.
type Validator interface {
	Validate(ctx context.Context, req availability.Request) ([]availability.Warning, error)
}

type Service struct {
	repo      Repository
	validator Validator
	conflicts *ConflictChecker
	locker    redisclient.Locker
	cfg       config.Config
	logger    zerolog.Logger
	metrics   *metrics.SchedulingMetrics
	now       func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the booking pipeline. locker may be nil, in which case
// no cross-request lock is taken.
func NewService(repo Repository, validator Validator, locker redisclient.Locker, cfg config.Config, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		validator: validator,
		conflicts: NewConflictChecker(repo),
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate returns the soft warnings for a candidate without checking
// double booking or writing anything.
func (s *Service) Validate(ctx context.Context, cand Candidate) ([]availability.Warning, error) {
	if err := cand.validateWindow(); err != nil {
		return nil, err
	}
	return s.validator.Validate(ctx, s.availabilityRequest(cand))
}

// CheckConflicts runs only the double-booking lookups.
func (s *Service) CheckConflicts(ctx context.Context, cand Candidate) (ConflictResult, error) {
	if err := cand.validateWindow(); err != nil {
		return ConflictResult{}, err
	}
	if cand.PatientID == uuid.Nil {
		return ConflictResult{}, &FieldError{Field: "patient_id", Reason: "is required"}
	}
	return s.conflicts.Check(ctx, cand, cand.ID)
}

// Submit runs the save pipeline for a create (cand.ID nil) or an edit.
func (s *Service) Submit(ctx context.Context, cand Candidate, opts SubmitOptions) (Outcome, error) {
	action := "create"
	if cand.isEdit() {
		action = "edit"
	}

	ctx, span := tracer.Start(ctx, "appointment.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("action", action),
		attribute.String("professional_id", cand.ProfessionalID.String()),
		attribute.String("patient_id", cand.PatientID.String()),
	)

	started := s.now()
	out, bypass, err := s.submit(ctx, cand, opts)
	if err != nil {
		recordSpanError(span, err)
		return Outcome{}, err
	}

	s.metrics.ObserveSubmission(action, out.Kind.String(), bypass, s.now().Sub(started).Seconds())
	span.SetAttributes(attribute.String("outcome", out.Kind.String()))
	return out, nil
}

func (s *Service) submit(ctx context.Context, cand Candidate, opts SubmitOptions) (Outcome, bool, error) {
	if err := cand.Validate(); err != nil {
		return Outcome{}, false, err
	}

	var existing *Appointment
	if cand.isEdit() {
		a, err := s.repo.GetAppointmentByID(ctx, cand.ID)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return Outcome{}, false, err
			}
			return Outcome{}, false, fmt.Errorf("load appointment: %w", err)
		}
		if a.Status == StatusRescheduled {
			return Outcome{}, false, ErrAppointmentSuperseded
		}
		existing = a
	}

	status := cand.Status
	if status == StatusUnknown {
		status = StatusScheduled
		if existing != nil {
			status = existing.Status
		}
	}
	if status == StatusRescheduled {
		return Outcome{}, false, ErrRescheduleRequired
	}

	if status == StatusCancelled {
		s.logger.Info().
			Str("professional_id", cand.ProfessionalID.String()).
			Bool("bypass", true).
			Msg("saving cancelled appointment without availability or conflict checks")
		saved, err := s.commit(ctx, s.repo, cand, existing, status, nil, true)
		if err != nil {
			return Outcome{}, false, err
		}
		return Outcome{Kind: OutcomeSaved, Appointment: saved}, true, nil
	}

	var (
		out Outcome
		err error
	)
	run := func(ctx context.Context) error {
		g, gerr := s.gate(ctx, cand, status, cand.ID, opts)
		if gerr != nil {
			return gerr
		}
		if g.stop != nil {
			out = *g.stop
			return nil
		}
		cand.Description = g.description
		saved, cerr := s.commit(ctx, s.repo, cand, existing, g.status, g.overridden, false)
		if cerr != nil {
			return cerr
		}
		if g.retro {
			s.logEvent(ctx, saved.ID, EventAppointmentRetroCompleted, map[string]any{
				"start_at":         saved.Start,
				"requested_status": status.String(),
			})
		}
		out = Outcome{Kind: OutcomeSaved, Appointment: saved, Warnings: g.overridden}
		return nil
	}

	if err = s.withLock(ctx, cand, run); err != nil {
		return Outcome{}, false, err
	}
	return out, false, nil
}

// gateResult is what the retroactive, conflict and warning checks decided.
// stop is set when the pipeline must return to the caller without writing.
type gateResult struct {
	stop        *Outcome
	status      Status
	description string
	retro       bool
	overridden  []availability.Warning
}

func (s *Service) gate(ctx context.Context, cand Candidate, status Status, exclude uuid.UUID, opts SubmitOptions) (gateResult, error) {
	if NeedsRetroactiveCompletion(cand.Start, s.now(), status) {
		if !opts.ConfirmRetroactive {
			s.logger.Debug().Time("start_at", cand.Start).Msg("past-dated candidate needs retroactive confirmation")
			return gateResult{stop: &Outcome{Kind: OutcomeNeedsRetroactiveAck}}, nil
		}
		return gateResult{status: StatusCompleted, description: cand.Description, retro: true}, nil
	}

	conflicts, err := s.conflicts.Check(ctx, cand, exclude)
	if err != nil {
		return gateResult{}, err
	}
	if conflicts.Blocked() {
		if conflicts.Professional != nil {
			s.metrics.ObserveConflict(AxisProfessional.String())
		}
		if conflicts.Patient != nil {
			s.metrics.ObserveConflict(AxisPatient.String())
		}
		s.logger.Debug().
			Str("professional_id", cand.ProfessionalID.String()).
			Strs("conflicts", conflicts.Messages(s.cfg.ClinicLocation())).
			Msg("double booking blocked")
		return gateResult{stop: &Outcome{Kind: OutcomeHardBlocked, Conflicts: conflicts}}, nil
	}

	warnings, err := s.validator.Validate(ctx, s.availabilityRequest(cand))
	if err != nil {
		return gateResult{}, fmt.Errorf("validate availability: %w", err)
	}
	for _, w := range warnings {
		s.metrics.ObserveWarning(string(w.Code), opts.AcknowledgeWarnings)
	}
	if len(warnings) > 0 && !opts.AcknowledgeWarnings {
		s.logger.Debug().Int("warnings", len(warnings)).Msg("candidate needs warning acknowledgement")
		return gateResult{stop: &Outcome{Kind: OutcomeNeedsWarningAck, Warnings: warnings}}, nil
	}

	res := gateResult{status: status, description: cand.Description}
	if len(warnings) > 0 {
		res.description = AppendAuditNote(cand.Description, warnings)
		res.overridden = warnings
	}
	return res, nil
}

// commit is the single write path. status is the explicit override for the
// row being written.
func (s *Service) commit(ctx context.Context, repo Repository, cand Candidate, existing *Appointment, status Status, overridden []availability.Warning, bypass bool) (*Appointment, error) {
	var (
		saved *Appointment
		err   error
		event string
	)
	if existing == nil {
		saved, err = repo.CreateAppointment(ctx, cand.toAppointment(Appointment{}, status))
		event = EventAppointmentCreated
	} else {
		saved, err = repo.UpdateAppointment(ctx, cand.toAppointment(*existing, status))
		event = EventAppointmentUpdated
	}
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) && existing != nil {
			// The row turned rescheduled between load and write.
			return nil, ErrAppointmentSuperseded
		}
		s.logger.Error().Err(err).Str("professional_id", cand.ProfessionalID.String()).Msg("failed to save appointment")
		return nil, fmt.Errorf("save appointment: %w", err)
	}

	s.logger.Info().
		Str("appointment_id", saved.ID.String()).
		Str("status", saved.Status.String()).
		Str("event", event).
		Msg("appointment saved")

	s.logEvent(ctx, saved.ID, event, map[string]any{
		"status":          saved.Status.String(),
		"professional_id": saved.ProfessionalID.String(),
		"patient_id":      saved.PatientID.String(),
		"start_at":        saved.Start,
		"end_at":          saved.End,
		"bypass":          bypass,
	})
	if len(overridden) > 0 {
		s.logEvent(ctx, saved.ID, EventAppointmentWarningsOverridden, map[string]any{
			"warnings": warningMessages(overridden),
		})
	}
	if existing != nil && existing.Status != saved.Status {
		s.metrics.ObserveTransition(existing.Status.String(), saved.Status.String())
	}
	return saved, nil
}

// SetStatus applies a status selected on an existing appointment. Only
// reactivating a cancelled or no-show booking goes through the save
// pipeline; other targets are plain updates.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, target Status, opts SubmitOptions) (Outcome, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	action, err := ResolveStatusSelection(a.Status, target)
	if err != nil {
		return Outcome{}, err
	}

	switch action {
	case ActionNone:
		return Outcome{Kind: OutcomeSaved, Appointment: a}, nil
	case ActionBeginReschedule:
		return Outcome{}, ErrRescheduleRequired
	case ActionCancelFork:
		return Outcome{}, ErrCancelModeRequired
	case ActionRevalidate:
		cand := CandidateFrom(*a)
		cand.Status = target
		return s.Submit(ctx, cand, opts)
	}

	updated, err := s.transition(ctx, a, target, EventAppointmentStatusChanged)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: OutcomeSaved, Appointment: updated}, nil
}

// Cancel resolves the cancel fork. CancelAndReschedule writes nothing and
// returns ErrRescheduleRequired so the caller continues with Reschedule.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, mode CancelMode) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusRescheduled {
		return nil, ErrAppointmentSuperseded
	}

	switch mode {
	case CancelAndReschedule:
		if !CanReschedule(a.Status) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, ErrRescheduleRequired
	case CancelJustCancel:
		if a.Status == StatusCancelled {
			return a, nil
		}
		return s.transition(ctx, a, StatusCancelled, EventAppointmentCancelled)
	default:
		return nil, ErrCancelModeRequired
	}
}

func (s *Service) transition(ctx context.Context, a *Appointment, to Status, event string) (*Appointment, error) {
	updated, err := s.repo.UpdateAppointmentStatus(ctx, a.ID, a.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("appointment %s changed status concurrently: %w", a.ID, ErrInvalidStatusTransition)
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.metrics.ObserveTransition(a.Status.String(), to.String())
	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("from", a.Status.String()).
		Str("to", to.String()).
		Msg("appointment status changed")
	s.logEvent(ctx, a.ID, event, map[string]any{
		"from": a.Status.String(),
		"to":   to.String(),
	})
	return updated, nil
}

// Reschedule moves booking id to a future time. The replacement runs the
// same conflict and warning gates as a create, ignoring the origin in
// conflict lookups. The origin is flagged rescheduled before the
// replacement is inserted, both in one transaction.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest, opts SubmitOptions) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "appointment.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("appointment_id", id.String()))

	started := s.now()
	out, err := s.reschedule(ctx, id, req, opts)
	if err != nil {
		recordSpanError(span, err)
		return Outcome{}, err
	}
	s.metrics.ObserveSubmission("reschedule", out.Kind.String(), false, s.now().Sub(started).Seconds())
	span.SetAttributes(attribute.String("outcome", out.Kind.String()))
	return out, nil
}

func (s *Service) reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest, opts SubmitOptions) (Outcome, error) {
	origin, err := s.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	if origin.Status == StatusRescheduled {
		return Outcome{}, ErrAppointmentSuperseded
	}
	if !CanReschedule(origin.Status) {
		return Outcome{}, ErrInvalidStatusTransition
	}

	cand := Candidate{
		ClinicID:       origin.ClinicID,
		PatientID:      origin.PatientID,
		ProfessionalID: origin.ProfessionalID,
		ProcedureID:    origin.ProcedureID,
		Title:          s.rescheduledTitle(origin.Title),
		Description:    origin.Description,
		Start:          req.Start,
		End:            req.End,
		Status:         StatusScheduled,
	}
	if req.Description != nil {
		cand.Description = *req.Description
	}
	if err := cand.Validate(); err != nil {
		return Outcome{}, err
	}
	// The replacement is always written as scheduled, so it cannot take
	// the retroactive completion path.
	if cand.Start.Before(s.now()) {
		return Outcome{}, &FieldError{Field: "start_at", Reason: "must not be in the past when rescheduling"}
	}

	var out Outcome
	run := func(ctx context.Context) error {
		g, err := s.gate(ctx, cand, StatusScheduled, origin.ID, opts)
		if err != nil {
			return err
		}
		if g.stop != nil {
			out = *g.stop
			return nil
		}
		cand.Description = g.description

		var flagged, created *Appointment
		err = s.repo.WithinTx(ctx, func(tx Repository) error {
			var err error
			flagged, err = tx.UpdateAppointmentStatus(ctx, origin.ID, origin.Status, StatusRescheduled)
			if err != nil {
				return fmt.Errorf("mark origin rescheduled: %w", err)
			}
			created, err = tx.CreateAppointment(ctx, cand.toAppointment(Appointment{}, StatusScheduled))
			if err != nil {
				return fmt.Errorf("create replacement appointment: %w", err)
			}
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).Str("appointment_id", origin.ID.String()).Msg("reschedule failed")
			return err
		}

		s.metrics.ObserveTransition(origin.Status.String(), StatusRescheduled.String())
		s.logger.Info().
			Str("appointment_id", origin.ID.String()).
			Str("replacement_id", created.ID.String()).
			Msg("appointment rescheduled")
		s.logEvent(ctx, origin.ID, EventAppointmentRescheduled, map[string]any{
			"from":           origin.Status.String(),
			"replacement_id": created.ID.String(),
		})
		s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
			"status":         created.Status.String(),
			"rescheduled_of": origin.ID.String(),
			"start_at":       created.Start,
			"end_at":         created.End,
		})
		if len(g.overridden) > 0 {
			s.logEvent(ctx, created.ID, EventAppointmentWarningsOverridden, map[string]any{
				"warnings": warningMessages(g.overridden),
			})
		}

		out = Outcome{Kind: OutcomeSaved, Appointment: created, Origin: flagged, Warnings: g.overridden}
		return nil
	}

	if err := s.withLock(ctx, cand, run); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	if f.Limit <= 0 {
		f.Limit = 50 // default
	}
	if f.Limit > 500 {
		f.Limit = 500 // max
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	appointments, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

func (s *Service) withLock(ctx context.Context, cand Candidate, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	keys := []string{
		"professional:" + cand.ProfessionalID.String(),
		"patient:" + cand.PatientID.String(),
	}
	err := s.locker.WithBookingLock(ctx, keys, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrBookingInProgress
	}
	return err
}

func (s *Service) rescheduledTitle(title string) string {
	prefix := s.cfg.RescheduleTitlePrefix
	if prefix == "" || strings.HasPrefix(title, prefix) {
		return title
	}
	return prefix + title
}

func (s *Service) availabilityRequest(cand Candidate) availability.Request {
	return availability.Request{
		ClinicID:       cand.ClinicID,
		ProfessionalID: cand.ProfessionalID,
		Start:          cand.Start,
		End:            cand.End,
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

// AppendAuditNote records overridden warnings at the end of description.
func AppendAuditNote(description string, warnings []availability.Warning) string {
	note := auditNotePrefix + strings.Join(warningMessages(warnings), " | ")
	if strings.TrimSpace(description) == "" {
		return note
	}
	return strings.TrimRight(description, "\n") + "\n\n" + note
}

func warningMessages(warnings []availability.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.Message)
	}
	return out
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
