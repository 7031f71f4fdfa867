package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lifeline.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DeviceID)
	assert.Equal(t, ".lifeline", cfg.DataDir)
	assert.Equal(t, filepath.Join(".lifeline", "lifeline.db"), cfg.DatabasePath())
	assert.Equal(t, 5, cfg.Relay.MaxHops)
	assert.Equal(t, 1, cfg.Sync.Concurrency)
	assert.Equal(t, "@every 1m", cfg.Sync.Schedule)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)

	timeout, err := cfg.BackendTimeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_UserOverrides(t *testing.T) {
	path := writeConfig(t, `
device_id: "device-a"
data_dir:  "/var/lib/lifeline"
backend: {
	url:     "http://localhost:8080"
	timeout: "3s"
}
relay: max_hops: 7
sync: concurrency: 4
log: level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "device-a", cfg.DeviceID)
	assert.Equal(t, "/var/lib/lifeline/lifeline.db", cfg.DatabasePath())
	assert.Equal(t, "http://localhost:8080", cfg.Backend.URL)
	assert.Equal(t, 7, cfg.Relay.MaxHops)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched fields keep defaults.
	assert.Equal(t, "@every 1m", cfg.Sync.Schedule)
}

func TestLoad_RejectsSchemaViolations(t *testing.T) {
	tests := map[string]string{
		"max hops too low":  `relay: max_hops: 0`,
		"max hops too high": `relay: max_hops: 17`,
		"unknown level":     `log: level: "verbose"`,
		"bad url scheme":    `backend: url: "ftp://x"`,
		"unknown field":     `colour: "blue"`,
		"wrong type":        `sync: concurrency: "two"`,
		"syntax error":      `relay: {`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)
}

func TestValidate_FlagOverrides(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	cfg.Relay.MaxHops = 0
	assert.Error(t, cfg.Validate())

	cfg.Relay.MaxHops = 5
	cfg.Backend.URL = "localhost:8080"
	assert.Error(t, cfg.Validate())

	cfg.Backend.URL = "https://ingest.example.org"
	cfg.Backend.Timeout = "soon"
	assert.Error(t, cfg.Validate())
}

func TestEnsureDeviceID_PersistsOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	first, err := EnsureDeviceID(dir)
	require.NoError(t, err)
	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())

	second, err := EnsureDeviceID(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(filepath.Join(dir, DeviceIDFile))
	require.NoError(t, err)
	assert.Equal(t, first+"\n", string(data))
}

func TestEnsureDeviceID_KeepsExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DeviceIDFile), []byte("  device-z \n"), 0o600))

	id, err := EnsureDeviceID(dir)
	require.NoError(t, err)
	assert.Equal(t, "device-z", id)
}
