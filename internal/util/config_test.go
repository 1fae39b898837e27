package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.ReportFile)
	assert.Len(t, cfg.ReferenceTargets, 3)
	assert.Equal(t, 3, cfg.PortHostCap)
	assert.Equal(t, 10, cfg.StaticRouteCap)
	assert.Greater(t, cfg.LatencyCritMs, cfg.LatencyWarnMs)
	assert.Greater(t, cfg.GatewayCritMs, cfg.GatewayWarnMs)
}

func TestDefaultServices(t *testing.T) {
	services := DefaultServices()
	require.NotEmpty(t, services)

	byName := make(map[string]ServiceSpec)
	for _, s := range services {
		byName[s.Name] = s
	}

	smb, ok := byName["SMB"]
	require.True(t, ok)
	assert.Empty(t, smb.Hosts)
	assert.False(t, smb.LocalScope)

	ssh, ok := byName["SSH (gateway)"]
	require.True(t, ok)
	assert.True(t, ssh.LocalScope)

	ntp, ok := byName["NTP"]
	require.True(t, ok)
	assert.Equal(t, "ntp", ntp.Check)
	assert.Equal(t, 123, ntp.Port)
}
