// Package backpressure turns telemetry buffer depth into flow-control
// decisions for producers and the uploader.
package backpressure

import (
	"context"
	"errors"

	"trackbuf/internal/config"
)

// Level classifies buffer depth against configured watermarks.
type Level string

const (
	// LevelNormal means the buffer is draining normally.
	LevelNormal Level = "normal"
	// LevelElevated means the uploader should sync more often.
	LevelElevated Level = "elevated"
	// LevelSaturated means producers should pause sampling.
	LevelSaturated Level = "saturated"
)

// Thresholds holds the depth watermarks. A depth at or above a watermark
// enters the corresponding level.
type Thresholds struct {
	Elevated int
	High     int
}

// ThresholdsFromConfig reads the buffer watermarks from cfg.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return Thresholds{
		Elevated: cfg.Buffer.ElevatedWatermark,
		High:     cfg.Buffer.HighWatermark,
	}
}

// Evaluate maps a buffer depth onto a Level.
func Evaluate(depth int, t Thresholds) Level {
	switch {
	case t.High > 0 && depth >= t.High:
		return LevelSaturated
	case t.Elevated > 0 && depth >= t.Elevated:
		return LevelElevated
	default:
		return LevelNormal
	}
}

// Counter reports the number of buffered records.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Status is a point-in-time backpressure reading.
type Status struct {
	Depth int   `json:"depth"`
	Level Level `json:"level"`
}

// PauseSampling reports whether producers should stop capturing samples.
func (s Status) PauseSampling() bool {
	return s.Level == LevelSaturated
}

// Escalate reports whether the uploader should shorten its polling interval.
func (s Status) Escalate() bool {
	return s.Level != LevelNormal
}

// Monitor polls a Counter and evaluates the result against fixed thresholds.
type Monitor struct {
	counter    Counter
	thresholds Thresholds
}

// NewMonitor constructs a Monitor.
func NewMonitor(counter Counter, thresholds Thresholds) *Monitor {
	return &Monitor{counter: counter, thresholds: thresholds}
}

// Thresholds returns the watermarks used by the monitor.
func (m *Monitor) Thresholds() Thresholds {
	return m.thresholds
}

// Check reads the current depth. Storage failures are returned unchanged so
// the caller's loop can decide how to recover.
func (m *Monitor) Check(ctx context.Context) (Status, error) {
	if m == nil || m.counter == nil {
		return Status{}, errors.New("backpressure monitor has no counter")
	}
	depth, err := m.counter.Count(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{Depth: depth, Level: Evaluate(depth, m.thresholds)}, nil
}
