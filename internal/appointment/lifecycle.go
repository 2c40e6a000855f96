package appointment

import "time"

// StatusAction is what a status selection on an existing appointment turns into.
type StatusAction uint8

const (
	// ActionNone means the selection equals the current status.
	ActionNone StatusAction = iota
	// ActionSetField is a plain status update with no re-validation.
	ActionSetField
	// ActionBeginReschedule redirects into the Reschedule flow.
	ActionBeginReschedule
	// ActionCancelFork asks the caller to choose between rescheduling and just cancelling.
	ActionCancelFork
	// ActionRevalidate reactivates a booking through the full save pipeline.
	ActionRevalidate
)

func (a StatusAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionSetField:
		return "set_field"
	case ActionBeginReschedule:
		return "begin_reschedule"
	case ActionCancelFork:
		return "cancel_fork"
	case ActionRevalidate:
		return "revalidate"
	}
	return "unknown"
}

// ResolveStatusSelection interprets selecting status selected on an
// appointment currently in status current. Selecting rescheduled is never
// written literally.
func ResolveStatusSelection(current, selected Status) (StatusAction, error) {
	if current == StatusRescheduled {
		return ActionNone, ErrAppointmentSuperseded
	}
	if !selected.Valid() {
		return ActionNone, ErrInvalidStatusTransition
	}
	if selected == current {
		return ActionNone, nil
	}

	switch selected {
	case StatusRescheduled:
		if !CanReschedule(current) {
			return ActionNone, ErrInvalidStatusTransition
		}
		return ActionBeginReschedule, nil
	case StatusCancelled:
		return ActionCancelFork, nil
	case StatusScheduled:
		if current == StatusCancelled || current == StatusNoShow {
			return ActionRevalidate, nil
		}
		return ActionSetField, nil
	default:
		return ActionSetField, nil
	}
}

// CanReschedule reports whether the Reschedule flow may start from s.
func CanReschedule(s Status) bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// NeedsRetroactiveCompletion reports whether a candidate starting at start
// with target status must be confirmed as a retroactive completion.
func NeedsRetroactiveCompletion(start, now time.Time, target Status) bool {
	return start.Before(now) && !target.exemptFromRetroactive()
}
