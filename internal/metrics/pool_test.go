package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("dmbot", reg)

	stats := PoolStats{Submitted: 5, Completed: 3, Failed: 1, Busy: 1, Queued: 0}
	require.NoError(t, m.RegisterPool(func() PoolStats { return stats }))

	expected := `
# HELP dmbot_pool_busy_workers Workers running a task
# TYPE dmbot_pool_busy_workers gauge
dmbot_pool_busy_workers 1
# HELP dmbot_pool_tasks_failed_total Tasks that returned an error or panicked
# TYPE dmbot_pool_tasks_failed_total counter
dmbot_pool_tasks_failed_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"dmbot_pool_busy_workers", "dmbot_pool_tasks_failed_total"))

	stats.Submitted = 9
	n, err := testutil.GatherAndCount(reg, "dmbot_pool_tasks_submitted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Error(t, m.RegisterPool(func() PoolStats { return stats }), "duplicate registration")
}

func TestMetrics_RegisterPoolNil(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.RegisterPool(func() PoolStats { return PoolStats{} }))
}
