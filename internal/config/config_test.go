package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9600, cfg.Baud)
	assert.Equal(t, 500*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.ScanWindow)
	assert.Equal(t, 1, cfg.Retries)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCANCTL_BAUD", "115200")
	t.Setenv("SCANCTL_READ_TIMEOUT", "1s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
}
