package metrics_test

import (
	"strings"
	"testing"
	"time"

	"courier-dispatch/internal/core/ports"
	"courier-dispatch/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Metrics = (*metrics.Metrics)(nil)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.DispatchOutcome("auto", "assigned")
	m.DispatchOutcome("auto", "assigned")
	m.DispatchOutcome("manual", "not_eligible")
	m.LocationRecorded(true, false)
	m.OutboxRelayed(3, true)
	m.OutboxPending(4)
	m.HTTPRequest("GET", "/api/v1/packages/:id", 200, 15*time.Millisecond)

	expected := `
# HELP courier_dispatch_dispatch_outcomes_total AssignOrder results by mode and outcome.
# TYPE courier_dispatch_dispatch_outcomes_total counter
courier_dispatch_dispatch_outcomes_total{mode="auto",outcome="assigned"} 2
courier_dispatch_dispatch_outcomes_total{mode="manual",outcome="not_eligible"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"courier_dispatch_dispatch_outcomes_total"))

	count, err := testutil.GatherAndCount(reg, "courier_dispatch_locations_recorded_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(reg, "courier_dispatch_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)

	assert.Panics(t, func() { metrics.New(reg) })
}
