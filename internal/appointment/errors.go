package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrAppointmentSuperseded   = errors.New("appointment was rescheduled and can no longer be edited")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrRescheduleRequired      = errors.New("status change requires the reschedule flow")
	ErrCancelModeRequired      = errors.New("cancellation requires choosing between rescheduling and just cancelling")
	ErrBookingInProgress       = errors.New("another booking for this professional or patient is in progress, please retry")
)

// FieldError reports a missing or malformed candidate field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConstraintError is a persistence-side rule violation translated into a
// message that can be shown to users.
type ConstraintError struct {
	Constraint string
	Message    string
	Err        error
}

func (e *ConstraintError) Error() string {
	return e.Message
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}
