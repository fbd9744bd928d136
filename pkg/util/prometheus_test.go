package util

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCounter() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: "retrace_test_total", Help: "Test counter."})
}

func TestRegisterOrGet(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := RegisterOrGet(reg, newTestCounter())
	first.Inc()

	second := RegisterOrGet(reg, newTestCounter())
	second.Inc()
	assert.Equal(t, float64(2), testutil.ToFloat64(first))

	unregistered := RegisterOrGet(nil, newTestCounter())
	unregistered.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(unregistered))
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg, newTestCounter())
	Register(reg, newTestCounter())
	Register(nil, newTestCounter())

	n, err := testutil.GatherAndCount(reg, "retrace_test_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Panics(t, func() {
		Register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: "retrace_test_total", Help: "Conflicting."}))
	})
}
