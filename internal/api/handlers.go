package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/availability"
)

type handlers struct {
	svc    AppointmentService
	logger zerolog.Logger
	loc    *time.Location
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON: "+err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *handlers) validate(w http.ResponseWriter, r *http.Request) {
	var req CandidateRequest
	if !decode(w, r, &req) {
		return
	}
	cand, err := req.candidate(uuid.Nil)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	warnings, err := h.svc.Validate(r.Context(), cand)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if warnings == nil {
		warnings = []availability.Warning{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Warnings: warnings})
}

func (h *handlers) conflicts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CandidateRequest
		AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := uuid.Nil
	if req.AppointmentID != nil {
		id = *req.AppointmentID
	}
	cand, err := req.candidate(id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	res, err := h.svc.CheckConflicts(r.Context(), cand)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ConflictsResponse{Blocked: res.Blocked(), Conflicts: conflictResponses(res, h.loc)})
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	var req CandidateRequest
	if !decode(w, r, &req) {
		return
	}
	h.submit(w, r, uuid.Nil, req)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CandidateRequest
	if !decode(w, r, &req) {
		return
	}
	h.submit(w, r, id, req)
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request, id uuid.UUID, req CandidateRequest) {
	cand, err := req.candidate(id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	out, err := h.svc.Submit(r.Context(), cand, req.options())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, outcomeStatus(out.Kind, id == uuid.Nil), outcomeResponse(out, h.loc))
}

func (h *handlers) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	target, err := appointment.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	out, err := h.svc.SetStatus(r.Context(), id, target, appointment.SubmitOptions{
		AcknowledgeWarnings: req.AcknowledgeWarnings,
		ConfirmRetroactive:  req.ConfirmRetroactive,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, outcomeStatus(out.Kind, false), outcomeResponse(out, h.loc))
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CancelRequest
	if !decode(w, r, &req) {
		return
	}
	mode, err := appointment.ParseCancelMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cancel_mode", err.Error())
		return
	}

	appt, err := h.svc.Cancel(r.Context(), id, mode)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *handlers) reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := h.svc.Reschedule(r.Context(), id, appointment.RescheduleRequest{
		Start:       req.StartAt,
		End:         req.EndAt,
		Description: req.Description,
	}, appointment.SubmitOptions{
		AcknowledgeWarnings: req.AcknowledgeWarnings,
		ConfirmRetroactive:  req.ConfirmRetroactive,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, outcomeStatus(out.Kind, true), outcomeResponse(out, h.loc))
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f appointment.ListFilter

	if v := q.Get("professional_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}
		f.ProfessionalID = &id
	}
	if v := q.Get("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		f.PatientID = &id
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_"+p.name, p.name+" must be an RFC 3339 timestamp")
			return
		}
		*p.dst = &t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		f.Offset = n
	}

	appts, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if appts == nil {
		appts = []appointment.Appointment{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Appointments: appts})
}
