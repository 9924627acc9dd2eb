package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipevillazon/xelips/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidMinimal(t *testing.T) {
	path := writeConfig(t, `
credentials_path: "/etc/xelips/credentials.yaml"
plcs:
  - key: plc1
    registry_path: "/etc/xelips/plc1.yaml"
    event_counter_path: "/var/lib/xelips/plc1.eventid"
    poll_period: 1s
    publishing_interval: 500ms
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.PLCs, 1)
	assert.Equal(t, "plc1", cfg.PLCs[0].Key)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoad_MissingPLCsFailsValidation(t *testing.T) {
	path := writeConfig(t, `
credentials_path: "/etc/xelips/credentials.yaml"
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingCredentialsPathFailsValidation(t *testing.T) {
	path := writeConfig(t, `
plcs:
  - key: plc1
    registry_path: "/etc/xelips/plc1.yaml"
    event_counter_path: "/var/lib/xelips/plc1.eventid"
    poll_period: 1s
    publishing_interval: 500ms
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_DuplicatePLCKeysRejected(t *testing.T) {
	path := writeConfig(t, `
credentials_path: "/etc/xelips/credentials.yaml"
plcs:
  - key: plc1
    registry_path: "/etc/xelips/plc1.yaml"
    event_counter_path: "/var/lib/xelips/plc1.eventid"
    poll_period: 1s
    publishing_interval: 500ms
  - key: plc1
    registry_path: "/etc/xelips/plc2.yaml"
    event_counter_path: "/var/lib/xelips/plc2.eventid"
    poll_period: 1s
    publishing_interval: 500ms
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate plc key")
}

func TestLoad_MissingFileYieldsDefaultsOnlyAndStillValidates(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err) // no plcs configured: defaults alone can't satisfy min=1
}
