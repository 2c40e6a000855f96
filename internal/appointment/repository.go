package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Axis selects which participant a double-booking lookup is keyed on.
type Axis uint8

const (
	AxisProfessional Axis = iota + 1
	AxisPatient
)

func (a Axis) String() string {
	switch a {
	case AxisProfessional:
		return "professional"
	case AxisPatient:
		return "patient"
	}
	return "unknown"
}

// OverlapQuery finds an active appointment for ID on Axis that intersects
// [Start, End). ExcludeID, when set, is left out of the search (edits).
type OverlapQuery struct {
	Axis      Axis
	ID        uuid.UUID
	Start     time.Time
	End       time.Time
	ExcludeID uuid.UUID
}

type ListFilter struct {
	ProfessionalID *uuid.UUID
	PatientID      *uuid.UUID
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error)

	// For conflict checks. Returns nil, nil when nothing overlaps.
	FindOverlapping(ctx context.Context, q OverlapQuery) (*Appointment, error)

	// Creation and updates
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error

	// WithinTx runs fn against a repository bound to one transaction. fn's
	// error rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error
}
