package webd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenPort = 0
	require.Error(t, cfg.Validate())

	cfg.ListenPort = 70000
	require.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsZeroWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerCount = 0
	require.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsZeroPoolSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DB.PoolSize = 0
	require.Error(t, cfg.Validate())
}

func TestTriggerModeTriggering(t *testing.T) {
	require.False(t, TriggerLTLT.ListenEdgeTriggered())
	require.False(t, TriggerLTLT.ConnEdgeTriggered())

	require.False(t, TriggerLTET.ListenEdgeTriggered())
	require.True(t, TriggerLTET.ConnEdgeTriggered())

	require.True(t, TriggerETLT.ListenEdgeTriggered())
	require.False(t, TriggerETLT.ConnEdgeTriggered())

	require.True(t, TriggerETET.ListenEdgeTriggered())
	require.True(t, TriggerETET.ConnEdgeTriggered())
}

func TestTriggerModeString(t *testing.T) {
	require.Equal(t, "ET+ET", TriggerETET.String())
}
