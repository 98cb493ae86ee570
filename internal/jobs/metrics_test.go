package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("inventory:verify").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("inventory:verify").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("inventory:verify", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("inventory:verify", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("inventory:verify")))
}

func TestCountersIgnoreEmptyWork(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddDrifts(1, 0, 0)
	m.AddDrifts(1, 0, 2)
	m.AddItems("count:snapshot", 0)
	m.AddItems("count:snapshot", 40)

	require.Equal(t, 2.0, testutil.ToFloat64(m.drifts.WithLabelValues("1", "0")))
	require.Equal(t, 40.0, testutil.ToFloat64(m.items.WithLabelValues("count:snapshot")))

	var nilMetrics *Metrics
	nilMetrics.AddDrifts(1, 1, 1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
