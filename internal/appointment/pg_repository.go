package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db dbtx
}

// NewPgRepository accepts a *pgxpool.Pool or anything with the same query surface.
func NewPgRepository(db dbtx) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentColumns = `id, clinic_id, patient_id, professional_id, procedure_id, title,
	COALESCE(description, ''), start_at, end_at, status, external_event_id, sync_status,
	created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		status string
	)

	err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.PatientID,
		&a.ProfessionalID,
		&a.ProcedureID,
		&a.Title,
		&a.Description,
		&a.Start,
		&a.End,
		&status,
		&a.ExternalEventID,
		&a.SyncStatus,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, translatePgError(err)
	}

	if a.Status, err = ParseStatus(status); err != nil {
		return nil, err
	}
	return &a, nil
}

// translatePgError turns recognizable constraint violations into a
// *ConstraintError and returns anything else unchanged.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	ce := &ConstraintError{Constraint: pgErr.ConstraintName, Err: err}
	switch pgErr.Code {
	case "23P01":
		ce.Message = "the professional already has an active appointment overlapping this time"
	case "23514":
		switch pgErr.ConstraintName {
		case "appointments_time_range_check":
			ce.Message = "the appointment must end after it starts"
		case "appointments_status_check":
			ce.Message = "the appointment status is not supported"
		default:
			ce.Message = fmt.Sprintf("the appointment violates the %s rule", pgErr.ConstraintName)
		}
	case "22P02":
		ce.Message = "one of the appointment fields has an invalid format"
	default:
		return err
	}
	return ce
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// Interface methods

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ProfessionalID != nil {
		add("professional_id = $%d", *f.ProfessionalID)
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.From != nil {
		add("end_at > $%d", *f.From)
	}
	if f.To != nil {
		add("start_at < $%d", *f.To)
	}

	sql := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	sql += fmt.Sprintf(` ORDER BY start_at LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FindOverlapping(ctx context.Context, q OverlapQuery) (*Appointment, error) {
	var column string
	switch q.Axis {
	case AxisProfessional:
		column = "professional_id"
	case AxisPatient:
		column = "patient_id"
	default:
		return nil, fmt.Errorf("unknown overlap axis %d", q.Axis)
	}

	// Same half-open rule as availability.Overlaps: touching ranges do not collide.
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE `+column+` = $1
		  AND status = ANY($2)
		  AND start_at < $4
		  AND end_at > $3
		  AND ($5::uuid IS NULL OR id <> $5)
		ORDER BY start_at
		LIMIT 1
	`, q.ID, ActiveStatuses(), q.Start, q.End, nullableID(q.ExcludeID))

	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, nil
	}
	return a, err
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, clinic_id, patient_id, professional_id, procedure_id, title,
		                          description, start_at, end_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, now(), now())
		RETURNING `+appointmentColumns,
		id, a.ClinicID, a.PatientID, a.ProfessionalID, a.ProcedureID, a.Title,
		a.Description, a.Start, a.End, a.Status.String())

	return scanAppointment(row)
}

// UpdateAppointment rewrites the editable fields. Rescheduled rows are never
// touched and surface as ErrAppointmentNotFound.
func (r *PgRepository) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    professional_id = $3,
		    procedure_id = $4,
		    title = $5,
		    description = NULLIF($6, ''),
		    start_at = $7,
		    end_at = $8,
		    status = $9,
		    updated_at = now()
		WHERE id = $1
		  AND status <> 'rescheduled'
		RETURNING `+appointmentColumns,
		a.ID, a.PatientID, a.ProfessionalID, a.ProcedureID, a.Title,
		a.Description, a.Start, a.End, a.Status.String())

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, to.String(), from.String())

	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func (r *PgRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&PgRepository{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", translatePgError(err))
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
