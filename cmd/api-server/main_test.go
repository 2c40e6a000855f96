package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/metrics"
)

func TestNewRegistryServesRuntimeAndSchedulingMetrics(t *testing.T) {
	reg := newRegistry()
	m := metrics.NewSchedulingMetrics(reg)
	m.ObserveSubmission("create", "saved", false, 0.01)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
	assert.True(t, names["clinic_scheduling_submissions_total"])
}
