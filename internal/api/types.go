package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
)

type CandidateRequest struct {
	ClinicID            uuid.UUID  `json:"clinic_id"`
	PatientID           uuid.UUID  `json:"patient_id"`
	ProfessionalID      uuid.UUID  `json:"professional_id"`
	ProcedureID         *uuid.UUID `json:"procedure_id,omitempty"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	StartAt             time.Time  `json:"start_at"`
	EndAt               time.Time  `json:"end_at"`
	Status              string     `json:"status,omitempty"`
	AcknowledgeWarnings bool       `json:"acknowledge_warnings"`
	ConfirmRetroactive  bool       `json:"confirm_retroactive"`
}

func (r CandidateRequest) candidate(id uuid.UUID) (appointment.Candidate, error) {
	c := appointment.Candidate{
		ID:             id,
		ClinicID:       r.ClinicID,
		PatientID:      r.PatientID,
		ProfessionalID: r.ProfessionalID,
		ProcedureID:    r.ProcedureID,
		Title:          r.Title,
		Description:    r.Description,
		Start:          r.StartAt,
		End:            r.EndAt,
	}
	if r.Status != "" {
		st, err := appointment.ParseStatus(r.Status)
		if err != nil {
			return appointment.Candidate{}, &appointment.FieldError{Field: "status", Reason: "is not a known status"}
		}
		c.Status = st
	}
	return c, nil
}

func (r CandidateRequest) options() appointment.SubmitOptions {
	return appointment.SubmitOptions{AcknowledgeWarnings: r.AcknowledgeWarnings, ConfirmRetroactive: r.ConfirmRetroactive}
}

type StatusRequest struct {
	Status              string `json:"status"`
	AcknowledgeWarnings bool   `json:"acknowledge_warnings"`
	ConfirmRetroactive  bool   `json:"confirm_retroactive"`
}

type CancelRequest struct {
	Mode string `json:"mode"` // "cancel" or "reschedule"
}

type RescheduleRequest struct {
	StartAt             time.Time `json:"start_at"`
	EndAt               time.Time `json:"end_at"`
	Description         *string   `json:"description,omitempty"`
	AcknowledgeWarnings bool      `json:"acknowledge_warnings"`
	ConfirmRetroactive  bool      `json:"confirm_retroactive"`
}

type ConflictResponse struct {
	Axis          string    `json:"axis"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Window        string    `json:"window"`
	Message       string    `json:"message"`
}

type OutcomeResponse struct {
	Outcome     string                   `json:"outcome"`
	Appointment *appointment.Appointment `json:"appointment,omitempty"`
	Origin      *appointment.Appointment `json:"origin,omitempty"`
	Conflicts   []ConflictResponse       `json:"conflicts,omitempty"`
	Warnings    []availability.Warning   `json:"warnings,omitempty"`
}

type ValidateResponse struct {
	Warnings []availability.Warning `json:"warnings"`
}

type ConflictsResponse struct {
	Blocked   bool               `json:"blocked"`
	Conflicts []ConflictResponse `json:"conflicts"`
}

type ListResponse struct {
	Appointments []appointment.Appointment `json:"appointments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func conflictResponses(res appointment.ConflictResult, loc *time.Location) []ConflictResponse {
	msgs := res.Messages(loc)
	out := make([]ConflictResponse, 0, len(msgs))
	i := 0
	if res.Professional != nil {
		out = append(out, ConflictResponse{
			Axis:          appointment.AxisProfessional.String(),
			AppointmentID: res.Professional.ID,
			Window:        res.Professional.Window(loc),
			Message:       msgs[i],
		})
		i++
	}
	if res.Patient != nil {
		out = append(out, ConflictResponse{
			Axis:          appointment.AxisPatient.String(),
			AppointmentID: res.Patient.ID,
			Window:        res.Patient.Window(loc),
			Message:       msgs[i],
		})
	}
	return out
}

func outcomeResponse(out appointment.Outcome, loc *time.Location) OutcomeResponse {
	return OutcomeResponse{
		Outcome:     out.Kind.String(),
		Appointment: out.Appointment,
		Origin:      out.Origin,
		Conflicts:   conflictResponses(out.Conflicts, loc),
		Warnings:    out.Warnings,
	}
}
