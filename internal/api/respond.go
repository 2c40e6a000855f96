package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps service errors onto HTTP responses. Persistence
// failures get a generic message; the cause is only logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var (
		fieldErr      *appointment.FieldError
		constraintErr *appointment.ConstraintError
	)

	switch {
	case errors.As(err, &fieldErr):
		writeError(w, http.StatusBadRequest, "invalid_field", fieldErr.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentSuperseded):
		writeError(w, http.StatusConflict, "appointment_superseded", err.Error())
	case errors.Is(err, appointment.ErrRescheduleRequired):
		writeError(w, http.StatusConflict, "reschedule_required", err.Error())
	case errors.Is(err, appointment.ErrCancelModeRequired):
		writeError(w, http.StatusConflict, "cancel_choice_required", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrBookingInProgress):
		writeError(w, http.StatusConflict, "booking_in_progress", err.Error())
	case errors.As(err, &constraintErr):
		writeError(w, http.StatusUnprocessableEntity, "constraint_violation", constraintErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("request timed out")
		writeError(w, http.StatusGatewayTimeout, "timeout", "the operation took too long, please try again")
	default:
		logger.Error().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "the operation failed, please try again")
	}
}

// outcomeStatus picks the HTTP status for a pipeline outcome. Prompts use
// 428 so clients resubmit with the matching acknowledgement flag.
func outcomeStatus(kind appointment.OutcomeKind, created bool) int {
	switch kind {
	case appointment.OutcomeSaved:
		if created {
			return http.StatusCreated
		}
		return http.StatusOK
	case appointment.OutcomeHardBlocked:
		return http.StatusConflict
	case appointment.OutcomeNeedsWarningAck, appointment.OutcomeNeedsRetroactiveAck:
		return http.StatusPreconditionRequired
	}
	return http.StatusInternalServerError
}
