package webd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsLifecycle(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	require.Zero(t, snap.RequestsServed+snap.RequestsFailed)

	m.RecordAccept()
	m.RecordAccept()
	m.RecordRequest(128, 512, 1_000_000, true)
	m.RecordRequest(64, 0, 500_000, false)
	m.RecordClose()

	snap = m.Snapshot()
	require.Equal(t, uint64(2), snap.ConnectionsAccepted)
	require.Equal(t, int64(1), snap.ConnectionsActive)
	require.Equal(t, uint64(1), snap.ConnectionsClosed)
	require.Equal(t, uint64(1), snap.RequestsServed)
	require.Equal(t, uint64(1), snap.RequestsFailed)
	require.InDelta(t, 50.0, snap.ErrorRate, 0.01)
}

func TestMetricsRejectAndEviction(t *testing.T) {
	m := NewMetrics()
	m.RecordReject()
	m.RecordTimeoutEviction()

	snap := m.Snapshot()
	require.Equal(t, uint64(1), snap.ConnectionsRejected)
	require.Equal(t, uint64(1), snap.TimeoutEvictions)
}

func TestMetricsLatencyPercentiles(t *testing.T) {
	m := NewMetrics()
	latencies := []uint64{1_000, 10_000, 100_000, 1_000_000, 10_000_000}
	for _, ns := range latencies {
		m.RecordRequest(1, 1, ns, true)
	}

	snap := m.Snapshot()
	require.Greater(t, snap.LatencyP99Ns, uint64(0))
	require.LessOrEqual(t, snap.LatencyP50Ns, snap.LatencyP99Ns)
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordAccept()
	m.RecordRequest(10, 10, 1000, true)
	m.Reset()

	snap := m.Snapshot()
	require.Zero(t, snap.ConnectionsAccepted)
	require.Zero(t, snap.RequestsServed)
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics()
	obs := NewMetricsObserver(m)

	var o Observer = obs
	o.ObserveAccept()
	o.ObserveRequest(10, 20, 1000, true)
	o.ObserveClose()

	snap := m.Snapshot()
	require.Equal(t, uint64(1), snap.ConnectionsAccepted)
	require.Equal(t, uint64(1), snap.RequestsServed)
}
