package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	ID              uuid.UUID  `json:"id"`
	ClinicID        uuid.UUID  `json:"clinic_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	ProfessionalID  uuid.UUID  `json:"professional_id"`
	ProcedureID     *uuid.UUID `json:"procedure_id,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Start           time.Time  `json:"start_at"`
	End             time.Time  `json:"end_at"`
	Status          Status     `json:"status"`
	ExternalEventID *string    `json:"external_event_id,omitempty"`
	SyncStatus      *string    `json:"sync_status,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Window renders the appointment's time range as shown to users, e.g. "10:00–10:30".
func (a Appointment) Window(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return a.Start.In(loc).Format("15:04") + "–" + a.End.In(loc).Format("15:04")
}

// Candidate is a proposed appointment, new or edited, not yet committed.
// ID is nil for creates.
type Candidate struct {
	ID             uuid.UUID
	ClinicID       uuid.UUID
	PatientID      uuid.UUID
	ProfessionalID uuid.UUID
	ProcedureID    *uuid.UUID
	Title          string
	Description    string
	Start          time.Time
	End            time.Time
	Status         Status
}

func (c Candidate) isEdit() bool {
	return c.ID != uuid.Nil
}

// Validate checks required-field presence. It never touches persistence.
func (c Candidate) Validate() error {
	switch {
	case c.ClinicID == uuid.Nil:
		return &FieldError{Field: "clinic_id", Reason: "is required"}
	case c.PatientID == uuid.Nil:
		return &FieldError{Field: "patient_id", Reason: "is required"}
	case c.ProfessionalID == uuid.Nil:
		return &FieldError{Field: "professional_id", Reason: "is required"}
	case strings.TrimSpace(c.Title) == "":
		return &FieldError{Field: "title", Reason: "is required"}
	case c.Start.IsZero():
		return &FieldError{Field: "start_at", Reason: "is required"}
	case c.End.IsZero():
		return &FieldError{Field: "end_at", Reason: "is required"}
	case !c.End.After(c.Start):
		return &FieldError{Field: "end_at", Reason: "must be after start_at"}
	case c.Status != StatusUnknown && !c.Status.Valid():
		return &FieldError{Field: "status", Reason: "is not a known status"}
	}
	return nil
}

// validateWindow checks only what the availability and conflict lookups need.
func (c Candidate) validateWindow() error {
	switch {
	case c.ClinicID == uuid.Nil:
		return &FieldError{Field: "clinic_id", Reason: "is required"}
	case c.ProfessionalID == uuid.Nil:
		return &FieldError{Field: "professional_id", Reason: "is required"}
	case c.Start.IsZero() || c.End.IsZero():
		return &FieldError{Field: "start_at", Reason: "and end_at are required"}
	case !c.End.After(c.Start):
		return &FieldError{Field: "end_at", Reason: "must be after start_at"}
	}
	return nil
}

// toAppointment applies the candidate over base (zero for creates) with the
// given status.
func (c Candidate) toAppointment(base Appointment, status Status) Appointment {
	a := base
	a.ID = c.ID
	a.ClinicID = c.ClinicID
	a.PatientID = c.PatientID
	a.ProfessionalID = c.ProfessionalID
	a.ProcedureID = c.ProcedureID
	a.Title = c.Title
	a.Description = c.Description
	a.Start = c.Start
	a.End = c.End
	a.Status = status
	return a
}

// CandidateFrom builds an edit candidate from a stored appointment.
func CandidateFrom(a Appointment) Candidate {
	return Candidate{
		ID:             a.ID,
		ClinicID:       a.ClinicID,
		PatientID:      a.PatientID,
		ProfessionalID: a.ProfessionalID,
		ProcedureID:    a.ProcedureID,
		Title:          a.Title,
		Description:    a.Description,
		Start:          a.Start,
		End:            a.End,
		Status:         a.Status,
	}
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
