package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trackbuf/internal/backpressure"
	"trackbuf/internal/config"
	"trackbuf/internal/logging"
	"trackbuf/internal/telemetry"
)

// ErrDeliveryFailed wraps errors returned by a Sink.
var ErrDeliveryFailed = errors.New("telemetry delivery failed")

// Source is the subset of the telemetry store consumed by the uploader.
type Source interface {
	Unsent(ctx context.Context) ([]telemetry.Record, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// Sink delivers a single record to the remote collector. A nil error means
// the collector has durably accepted the record.
type Sink interface {
	Send(ctx context.Context, rec telemetry.Record) error
}

// Result summarizes one flush pass.
type Result struct {
	CorrelationID string
	Fetched       int
	Sent          int
	Failed        int
}

// Options configures polling cadence.
type Options struct {
	PollInterval      time.Duration
	EscalatedInterval time.Duration
	Thresholds        backpressure.Thresholds
}

// OptionsFromConfig derives polling cadence and watermarks from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return Options{
		PollInterval:      cfg.PollInterval(),
		EscalatedInterval: cfg.EscalatedInterval(),
		Thresholds:        backpressure.ThresholdsFromConfig(cfg),
	}
}

// Uploader moves records from a Source to a Sink.
type Uploader struct {
	source  Source
	sink    Sink
	monitor *backpressure.Monitor
	opts    Options
	logger  *slog.Logger
}

// New constructs an Uploader.
func New(source Source, sink Sink, opts Options, logger *slog.Logger) (*Uploader, error) {
	if source == nil || sink == nil {
		return nil, errors.New("uploader requires a source and a sink")
	}
	if opts.PollInterval <= 0 {
		return nil, errors.New("uploader poll interval must be positive")
	}
	if opts.EscalatedInterval <= 0 || opts.EscalatedInterval > opts.PollInterval {
		opts.EscalatedInterval = opts.PollInterval
	}
	return &Uploader{
		source:  source,
		sink:    sink,
		monitor: backpressure.NewMonitor(source, opts.Thresholds),
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "uploader"),
	}, nil
}

// Flush runs a single pass over the oldest pending batch.
//
// Records are acknowledged one at a time after a successful send. The pass
// stops at the first delivery failure and returns an error wrapping
// ErrDeliveryFailed; storage failures are returned as-is.
func (u *Uploader) Flush(ctx context.Context) (Result, error) {
	result := Result{CorrelationID: uuid.NewString()}
	ctx = logging.WithCorrelationID(ctx, result.CorrelationID)
	logger := logging.WithContext(ctx, u.logger)

	records, err := u.source.Unsent(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch unsent: %w", err)
	}
	result.Fetched = len(records)
	if len(records) == 0 {
		logger.Debug("no pending records")
		return result, nil
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := u.sink.Send(ctx, rec); err != nil {
			result.Failed++
			logger.Warn("delivery failed; leaving remaining records pending",
				logging.Int64(logging.FieldRecordID, rec.ID),
				logging.Int("sent", result.Sent),
				logging.Int("pending_in_batch", len(records)-result.Sent),
				logging.Error(err),
			)
			return result, fmt.Errorf("%w: record %d: %w", ErrDeliveryFailed, rec.ID, err)
		}
		if err := u.source.Delete(ctx, rec.ID); err != nil {
			// The collector has the record; it stays pending and will be re-sent.
			return result, fmt.Errorf("acknowledge record %d: %w", rec.ID, err)
		}
		result.Sent++
	}

	logger.Info("flush complete",
		logging.String(logging.FieldEventType, "flush_complete"),
		logging.Int("fetched", result.Fetched),
		logging.Int("sent", result.Sent),
	)
	return result, nil
}

// Drain repeats Flush while full batches are delivered, so a large backlog is
// cleared in one wake-up. It stops at the first error or partial batch.
func (u *Uploader) Drain(ctx context.Context) (Result, error) {
	var total Result
	for {
		res, err := u.Flush(ctx)
		total.CorrelationID = res.CorrelationID
		total.Fetched += res.Fetched
		total.Sent += res.Sent
		total.Failed += res.Failed
		if err != nil {
			return total, err
		}
		if res.Sent < telemetry.BatchSize {
			return total, nil
		}
	}
}

// NextInterval returns the wait before the next pass given the buffer status.
func (u *Uploader) NextInterval(status backpressure.Status) time.Duration {
	if status.Escalate() {
		return u.opts.EscalatedInterval
	}
	return u.opts.PollInterval
}

// Run drains the buffer on a timer until ctx is cancelled. Failures are
// logged and retried on the next tick.
func (u *Uploader) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := u.Drain(ctx); err != nil && ctx.Err() == nil {
			if !errors.Is(err, ErrDeliveryFailed) {
				u.logger.Error("flush pass failed", logging.Error(err))
			}
		}

		interval := u.opts.PollInterval
		status, err := u.monitor.Check(ctx)
		if err != nil {
			if ctx.Err() == nil {
				u.logger.Error("buffer depth check failed", logging.Error(err))
			}
		} else {
			interval = u.NextInterval(status)
			if status.Escalate() {
				u.logger.Info("buffer under pressure; escalating sync",
					logging.Int(logging.FieldDepth, status.Depth),
					logging.String(logging.FieldPressure, string(status.Level)),
					logging.Duration("interval", interval),
				)
			}
		}
		timer.Reset(interval)
	}
}
