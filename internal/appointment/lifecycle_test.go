package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStatusSelection(t *testing.T) {
	tests := []struct {
		name     string
		current  Status
		selected Status
		want     StatusAction
		wantErr  error
	}{
		{"same status", StatusConfirmed, StatusConfirmed, ActionNone, nil},
		{"confirm", StatusScheduled, StatusConfirmed, ActionSetField, nil},
		{"complete", StatusConfirmed, StatusCompleted, ActionSetField, nil},
		{"no show", StatusScheduled, StatusNoShow, ActionSetField, nil},
		{"reschedule from scheduled", StatusScheduled, StatusRescheduled, ActionBeginReschedule, nil},
		{"reschedule from confirmed", StatusConfirmed, StatusRescheduled, ActionBeginReschedule, nil},
		{"reschedule from completed", StatusCompleted, StatusRescheduled, ActionNone, ErrInvalidStatusTransition},
		{"cancel", StatusConfirmed, StatusCancelled, ActionCancelFork, nil},
		{"reactivate cancelled", StatusCancelled, StatusScheduled, ActionRevalidate, nil},
		{"reactivate no show", StatusNoShow, StatusScheduled, ActionRevalidate, nil},
		{"back to scheduled", StatusConfirmed, StatusScheduled, ActionSetField, nil},
		{"superseded", StatusRescheduled, StatusScheduled, ActionNone, ErrAppointmentSuperseded},
		{"unknown target", StatusScheduled, StatusUnknown, ActionNone, ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStatusSelection(tt.current, tt.selected)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNeedsRetroactiveCompletion(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	past := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	assert.True(t, NeedsRetroactiveCompletion(past, now, StatusScheduled))
	assert.True(t, NeedsRetroactiveCompletion(past, now, StatusConfirmed))
	assert.False(t, NeedsRetroactiveCompletion(past, now, StatusCompleted))
	assert.False(t, NeedsRetroactiveCompletion(past, now, StatusCancelled))
	assert.False(t, NeedsRetroactiveCompletion(past, now, StatusNoShow))
	assert.False(t, NeedsRetroactiveCompletion(future, now, StatusScheduled))
	assert.False(t, NeedsRetroactiveCompletion(now, now, StatusScheduled))
}
