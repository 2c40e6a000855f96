package appointment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for st, name := range statusNames {
		got, err := ParseStatus(name)
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	got, err := ParseStatus(" No_Show ")
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, got)

	_, err = ParseStatus("Confirmado")
	assert.Error(t, err)
}

func TestStatusIsActive(t *testing.T) {
	assert.True(t, StatusScheduled.IsActive())
	assert.True(t, StatusConfirmed.IsActive())
	assert.True(t, StatusCompleted.IsActive())
	assert.False(t, StatusCancelled.IsActive())
	assert.False(t, StatusNoShow.IsActive())
	assert.False(t, StatusRescheduled.IsActive())
	assert.False(t, StatusUnknown.IsActive())
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		S Status `json:"s"`
	}{StatusNoShow})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"no_show"}`, string(b))

	var out struct {
		S Status `json:"s"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"s":"rescheduled"}`), &out))
	assert.Equal(t, StatusRescheduled, out.S)

	assert.Error(t, json.Unmarshal([]byte(`{"s":"archived"}`), &out))

	_, err = json.Marshal(StatusUnknown)
	assert.Error(t, err)
}
