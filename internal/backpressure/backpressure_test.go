package backpressure_test

import (
	"context"
	"errors"
	"testing"

	"trackbuf/internal/backpressure"
	"trackbuf/internal/testsupport"
)

func TestEvaluateLevels(t *testing.T) {
	thresholds := backpressure.Thresholds{Elevated: 10, High: 100}
	cases := []struct {
		depth int
		want  backpressure.Level
	}{
		{0, backpressure.LevelNormal},
		{9, backpressure.LevelNormal},
		{10, backpressure.LevelElevated},
		{99, backpressure.LevelElevated},
		{100, backpressure.LevelSaturated},
		{5000, backpressure.LevelSaturated},
	}
	for _, tc := range cases {
		if got := backpressure.Evaluate(tc.depth, thresholds); got != tc.want {
			t.Fatalf("depth %d: expected %s, got %s", tc.depth, tc.want, got)
		}
	}
}

func TestEvaluateIgnoresUnsetThresholds(t *testing.T) {
	if got := backpressure.Evaluate(1_000_000, backpressure.Thresholds{}); got != backpressure.LevelNormal {
		t.Fatalf("expected normal with no thresholds, got %s", got)
	}
}

func TestMonitorChecksStoreDepth(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWatermarks(2, 3))
	store := testsupport.MustOpenStore(t, cfg)
	monitor := backpressure.NewMonitor(store, backpressure.ThresholdsFromConfig(cfg))

	ctx := context.Background()
	wantLevels := []backpressure.Level{
		backpressure.LevelNormal,
		backpressure.LevelElevated,
		backpressure.LevelSaturated,
	}
	for i, want := range wantLevels {
		testsupport.MustInsert(t, store, testsupport.Sample(int64(i)))
		status, err := monitor.Check(ctx)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if status.Depth != i+1 || status.Level != want {
			t.Fatalf("after %d inserts: got %+v want level %s", i+1, status, want)
		}
	}

	status, err := monitor.Check(ctx)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !status.PauseSampling() || !status.Escalate() {
		t.Fatalf("expected saturated status to pause and escalate, got %+v", status)
	}
}

type failingCounter struct{ err error }

func (f failingCounter) Count(context.Context) (int, error) { return 0, f.err }

func TestMonitorSurfacesCounterErrors(t *testing.T) {
	boom := errors.New("disk gone")
	monitor := backpressure.NewMonitor(failingCounter{err: boom}, backpressure.Thresholds{Elevated: 1, High: 2})
	if _, err := monitor.Check(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected counter error, got %v", err)
	}
}
