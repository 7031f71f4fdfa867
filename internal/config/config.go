// Package config loads device configuration from an embedded CUE schema
// unified with an optional user file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/lifeline/internal/ids"
)

//go:embed schema.cue
var schemaCUE string

// DeviceIDFile is the name of the persisted device id under the data dir.
const DeviceIDFile = "device_id"

// Config is the decoded #Config.
type Config struct {
	DeviceID string        `json:"device_id"`
	DataDir  string        `json:"data_dir"`
	Database string        `json:"database"`
	Backend  BackendConfig `json:"backend"`
	Relay    RelayConfig   `json:"relay"`
	Sync     SyncConfig    `json:"sync"`
	Log      LogConfig     `json:"log"`
	Metrics  MetricsConfig `json:"metrics"`
}

// BackendConfig locates the central backend for sync passes.
type BackendConfig struct {
	URL     string `json:"url"`
	Timeout string `json:"timeout"`
}

// RelayConfig sets the hop budget stamped on requests submitted here.
type RelayConfig struct {
	MaxHops int `json:"max_hops"`
}

// SyncConfig controls upload fan-out and the daemon schedule.
type SyncConfig struct {
	Concurrency int    `json:"concurrency"`
	Schedule    string `json:"schedule"`
}

// LogConfig selects the log level and an optional rotated log file.
type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// MetricsConfig is the daemon's listen address for /metrics.
type MetricsConfig struct {
	Addr string `json:"addr"`
}

// Default returns the schema defaults.
func Default() (Config, error) {
	return Load("")
}

// Load unifies the schema with the CUE file at path (if non-empty) and
// decodes the result. Violations of the schema are reported with CUE
// positions.
func Load(path string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		user := ctx.CompileBytes(data, cue.Filename(path))
		if err := user.Err(); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		v = v.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// DatabasePath returns the SQLite path, defaulting under DataDir.
func (c Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	return filepath.Join(c.DataDir, "lifeline.db")
}

// BackendTimeout parses Backend.Timeout.
func (c Config) BackendTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil {
		return 0, fmt.Errorf("backend timeout: %w", err)
	}
	return d, nil
}

// Validate re-checks fields that flags may have overridden after Load.
func (c Config) Validate() error {
	switch {
	case c.DataDir == "":
		return errors.New("data_dir must not be empty")
	case c.Relay.MaxHops < 1 || c.Relay.MaxHops > 16:
		return fmt.Errorf("relay.max_hops must be in 1..16, got %d", c.Relay.MaxHops)
	case c.Sync.Concurrency < 1:
		return fmt.Errorf("sync.concurrency must be positive, got %d", c.Sync.Concurrency)
	case c.Backend.URL != "" && !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://"):
		return fmt.Errorf("backend.url must be http or https, got %q", c.Backend.URL)
	}
	if _, err := c.BackendTimeout(); err != nil {
		return err
	}
	return nil
}

// EnsureDeviceID returns the device id persisted in dataDir, creating one
// on first use. The id never changes afterwards.
func EnsureDeviceID(dataDir string) (string, error) {
	path := filepath.Join(dataDir, DeviceIDFile)

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	id := ids.UUIDv7{}.Generate()
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	return id, nil
}
