package appointment

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an appointment. The zero value is not a
// valid status and never reaches persistence.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusScheduled
	StatusConfirmed
	StatusCompleted
	StatusCancelled
	StatusNoShow
	StatusRescheduled
)

var statusNames = map[Status]string{
	StatusScheduled:   "scheduled",
	StatusConfirmed:   "confirmed",
	StatusCompleted:   "completed",
	StatusCancelled:   "cancelled",
	StatusNoShow:      "no_show",
	StatusRescheduled: "rescheduled",
}

// ParseStatus is the only way text becomes a Status.
func ParseStatus(s string) (Status, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for st, name := range statusNames {
		if name == needle {
			return st, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown appointment status %q", s)
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsActive reports whether appointments in this status occupy their time
// window for double-booking purposes.
func (s Status) IsActive() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

// exemptFromRetroactive lists the statuses a past-dated candidate may carry
// without prompting for retroactive completion.
func (s Status) exemptFromRetroactive() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// ActiveStatuses returns the serialized names of active statuses, for queries.
func ActiveStatuses() []string {
	return []string{StatusScheduled.String(), StatusConfirmed.String(), StatusCompleted.String()}
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot serialize appointment status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
