// Package daemon runs sync passes on a schedule and serves metrics.
//
// The daemon is the connectivity notifier for a long-running device: each
// tick asks the orchestrator to sync, and the orchestrator's connectivity
// probe decides whether the pass does anything.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/roach88/lifeline/internal/metrics"
	"github.com/roach88/lifeline/internal/syncer"
)

// DefaultSchedule runs a pass every minute.
const DefaultSchedule = "@every 1m"

// Syncer runs one sync pass.
type Syncer interface {
	Sync(ctx context.Context) (syncer.Result, error)
}

// Daemon schedules sync passes.
type Daemon struct {
	syncer      Syncer
	schedule    string
	metricsAddr string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithSchedule sets the cron spec (standard 5-field or descriptors such as
// "@every 30s").
func WithSchedule(spec string) Option {
	return func(d *Daemon) {
		d.schedule = spec
	}
}

// WithMetricsAddr serves /metrics and /healthz on addr. Empty disables it.
func WithMetricsAddr(addr string) Option {
	return func(d *Daemon) {
		d.metricsAddr = addr
	}
}

// WithMetrics sets the instruments served on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Daemon) {
		d.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Daemon) {
		d.logger = l
	}
}

// New creates a Daemon driving s.
func New(s Syncer, opts ...Option) (*Daemon, error) {
	if s == nil {
		return nil, errors.New("daemon: syncer is required")
	}
	d := &Daemon{
		syncer:   s,
		schedule: DefaultSchedule,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if _, err := cron.ParseStandard(d.schedule); err != nil {
		return nil, fmt.Errorf("daemon: schedule %q: %w", d.schedule, err)
	}
	return d, nil
}

// Tick runs one pass and logs its outcome. Errors are logged, not
// returned; the next tick retries.
func (d *Daemon) Tick(ctx context.Context) syncer.Result {
	res, err := d.syncer.Sync(ctx)
	switch {
	case err != nil:
		d.logger.Error("scheduled sync failed", "error", err)
	case res.Offline:
		d.logger.Debug("scheduled sync: offline")
	default:
		d.logger.Info("scheduled sync",
			"synced", res.Synced,
			"failed", len(res.Failures),
		)
	}
	return res
}

// Run syncs once immediately, then on every scheduled tick until ctx ends.
// Overlapping ticks are skipped while a pass is still running.
func (d *Daemon) Run(ctx context.Context) error {
	logger := cronLogger{d.logger}
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	if _, err := c.AddFunc(d.schedule, func() { d.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}

	var srv *http.Server
	serveErr := make(chan error, 1)
	if d.metricsAddr != "" {
		srv = &http.Server{
			Addr:              d.metricsAddr,
			Handler:           d.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			d.logger.Info("metrics listening", "addr", d.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	d.logger.Info("daemon starting", "schedule", d.schedule)
	d.Tick(ctx)
	c.Start()

	var runErr error
	select {
	case <-ctx.Done():
		d.logger.Info("daemon stopping: context cancelled")
	case err := <-serveErr:
		runErr = fmt.Errorf("metrics server: %w", err)
	}

	<-c.Stop().Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("metrics server shutdown", "error", err)
		}
	}
	return runErr
}

// Handler serves /metrics and /healthz.
func (d *Daemon) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(d.metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
