package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/lifeline/internal/backend"
	"github.com/roach88/lifeline/internal/config"
	"github.com/roach88/lifeline/internal/facility"
	"github.com/roach88/lifeline/internal/intake"
	"github.com/roach88/lifeline/internal/metrics"
	"github.com/roach88/lifeline/internal/relay"
	"github.com/roach88/lifeline/internal/store"
	"github.com/roach88/lifeline/internal/syncer"
)

// App is the per-invocation wiring: config, device identity, store and
// logger. Commands build the components they need from it.
type App struct {
	Config   config.Config
	DeviceID string
	Store    *store.Store
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	logCloser io.Closer
}

// openApp loads config, applies flag overrides, resolves the device id and
// opens the store. The caller must Close the App.
func openApp(opts *RootOptions, cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.DeviceID != "" {
		cfg.DeviceID = opts.DeviceID
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	logger, logCloser, err := newLogger(cfg.Log, opts, cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	deviceID := cfg.DeviceID
	if deviceID == "" {
		deviceID, err = config.EnsureDeviceID(cfg.DataDir)
		if err != nil {
			logCloser.Close()
			return nil, WrapExitError(ExitCommandError, "failed to resolve device id", err)
		}
	}
	logger = logger.With("device", deviceID)

	dbPath := cfg.DatabasePath()
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			logCloser.Close()
			return nil, WrapExitError(ExitCommandError, "failed to create data directory", err)
		}
	}
	logger.Debug("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		logCloser.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &App{
		Config:    cfg,
		DeviceID:  deviceID,
		Store:     st,
		Metrics:   metrics.New(deviceID),
		Logger:    logger,
		logCloser: logCloser,
	}, nil
}

// Close releases the store and the log file.
func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.logCloser.Close())
}

// Relay builds the relay engine for this device.
func (a *App) Relay() (*relay.Engine, error) {
	return relay.New(a.DeviceID, a.Store,
		relay.WithMetrics(a.Metrics),
		relay.WithLogger(a.Logger),
	)
}

// Intake builds the origin submission service.
func (a *App) Intake() (*intake.Service, error) {
	return intake.New(a.DeviceID, a.Store,
		intake.WithMaxHops(a.Config.Relay.MaxHops),
		intake.WithMetrics(a.Metrics),
		intake.WithLogger(a.Logger),
	)
}

// Syncer builds an orchestrator uploading to backendURL, falling back to
// the configured backend.
func (a *App) Syncer(backendURL string) (*syncer.Orchestrator, error) {
	if backendURL == "" {
		backendURL = a.Config.Backend.URL
	}
	if backendURL == "" {
		return nil, NewExitError(ExitCommandError, "no backend configured: pass --backend or set backend.url")
	}

	timeout, err := a.Config.BackendTimeout()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	client, err := backend.NewClient(backendURL,
		backend.WithTimeout(timeout),
		backend.WithClientLogger(a.Logger),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid backend url", err)
	}

	orch, err := syncer.New(a.DeviceID, a.Store, client, client,
		syncer.WithConcurrency(a.Config.Sync.Concurrency),
		syncer.WithMetrics(a.Metrics),
		syncer.WithLogger(a.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build syncer: %w", err)
	}
	return orch, nil
}

// Facilities builds the facility directory service.
func (a *App) Facilities() *facility.Service {
	return facility.New(a.Store, nil, a.Logger)
}

// withApp opens the App for the duration of fn.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(*App) error) error {
	app, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			app.Logger.Error("error closing app", "error", closeErr)
		}
	}()
	return fn(app)
}
