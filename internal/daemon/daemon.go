package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"trackbuf/internal/backpressure"
	"trackbuf/internal/config"
	"trackbuf/internal/logging"
	"trackbuf/internal/preflight"
	"trackbuf/internal/telemetry"
	"trackbuf/internal/uploader"
)

// ErrAlreadyRunning is returned when another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another trackbuf daemon instance is already running")

// Daemon runs the uploader loop and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *telemetry.Store
	uploader *uploader.Uploader
	monitor  *backpressure.Monitor

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Depth        int
	Pressure     backpressure.Level
	DatabasePath string
	LockFilePath string
	StatusError  string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *telemetry.Store, up *uploader.Uploader, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || up == nil {
		return nil, errors.New("daemon requires config, store, and uploader")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		uploader: up,
		monitor:  backpressure.NewMonitor(store, backpressure.ThresholdsFromConfig(cfg)),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the uploader loop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if !result.Passed {
			d.logger.Warn("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done

	go func() {
		defer close(done)
		if err := d.uploader.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("uploader loop exited", logging.Error(err))
		}
	}()

	d.running.Store(true)
	d.logger.Info("trackbuf daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
	)
	return nil
}

// Stop stops the uploader loop and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("trackbuf daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LockPath returns the path of the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	pressure, err := d.monitor.Check(ctx)
	if err != nil {
		status.StatusError = err.Error()
		return status
	}
	status.Depth = pressure.Depth
	status.Pressure = pressure.Level
	return status
}
