package uploader_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trackbuf/internal/backpressure"
	"trackbuf/internal/logging"
	"trackbuf/internal/telemetry"
	"trackbuf/internal/testsupport"
	"trackbuf/internal/uploader"
)

type recordingSink struct {
	mu      sync.Mutex
	sent    []telemetry.Record
	failOn  map[int64]error
	records chan telemetry.Record
}

func (s *recordingSink) Send(_ context.Context, rec telemetry.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOn[rec.ID]; ok {
		return err
	}
	s.sent = append(s.sent, rec)
	if s.records != nil {
		select {
		case s.records <- rec:
		default:
		}
	}
	return nil
}

func (s *recordingSink) timestamps() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.sent))
	for _, rec := range s.sent {
		out = append(out, rec.Timestamp)
	}
	return out
}

// flakyAckSource fails the first Delete for one record to simulate a crash
// between delivery and acknowledgment.
type flakyAckSource struct {
	*telemetry.Store
	failID int64
	failed bool
}

func (f *flakyAckSource) Delete(ctx context.Context, id int64) error {
	if id == f.failID && !f.failed {
		f.failed = true
		return telemetry.ErrStorageUnavailable
	}
	return f.Store.Delete(ctx, id)
}

func newUploader(t *testing.T, source uploader.Source, sink uploader.Sink) *uploader.Uploader {
	t.Helper()
	u, err := uploader.New(source, sink, uploader.Options{
		PollInterval:      time.Minute,
		EscalatedInterval: time.Second,
		Thresholds:        backpressure.Thresholds{Elevated: 10, High: 100},
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("uploader.New: %v", err)
	}
	return u
}

func TestFlushSendsOldestFirstAndAcknowledges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	for _, ts := range []int64{300, 100, 200} {
		testsupport.MustInsert(t, store, testsupport.Sample(ts))
	}

	sink := &recordingSink{}
	result, err := newUploader(t, store, sink).Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if result.Fetched != 3 || result.Sent != 3 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.CorrelationID == "" {
		t.Fatal("expected correlation id")
	}
	got := sink.timestamps()
	for i, want := range []int64{100, 200, 300} {
		if got[i] != want {
			t.Fatalf("send order %v, want [100 200 300]", got)
		}
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected buffer drained, got %d", count)
	}
}

func TestFlushStopsAtFirstDeliveryFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	var ids []int64
	for ts := int64(1); ts <= 5; ts++ {
		ids = append(ids, testsupport.MustInsert(t, store, testsupport.Sample(ts)))
	}

	boom := errors.New("collector offline")
	sink := &recordingSink{failOn: map[int64]error{ids[2]: boom}}
	result, err := newUploader(t, store, sink).Flush(context.Background())
	if !errors.Is(err, uploader.ErrDeliveryFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped delivery failure, got %v", err)
	}
	if result.Sent != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	remaining, err := store.Unsent(context.Background())
	if err != nil {
		t.Fatalf("Unsent failed: %v", err)
	}
	if len(remaining) != 3 || remaining[0].ID != ids[2] {
		t.Fatalf("expected records from the failure onward to stay pending, got %+v", remaining)
	}
}

func TestFlushResendsWhenAcknowledgmentIsLost(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	id := testsupport.MustInsert(t, store, testsupport.Sample(1))

	sink := &recordingSink{}
	u := newUploader(t, &flakyAckSource{Store: store, failID: id}, sink)

	ctx := context.Background()
	_, err := u.Flush(ctx)
	if !errors.Is(err, telemetry.ErrStorageUnavailable) {
		t.Fatalf("expected acknowledgment failure, got %v", err)
	}
	if errors.Is(err, uploader.ErrDeliveryFailed) {
		t.Fatalf("acknowledgment failure must not be reported as delivery failure: %v", err)
	}

	if _, err := u.Flush(ctx); err != nil {
		t.Fatalf("second Flush failed: %v", err)
	}
	if got := sink.timestamps(); len(got) != 2 {
		t.Fatalf("expected the record to be delivered twice, got %d sends", len(got))
	}
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected record acknowledged on retry, got %d pending", count)
	}
}

func TestDrainClearsMultipleBatches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	const total = telemetry.BatchSize*2 + 7
	for ts := int64(0); ts < total; ts++ {
		testsupport.MustInsert(t, store, testsupport.Sample(ts))
	}

	sink := &recordingSink{}
	result, err := newUploader(t, store, sink).Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if result.Sent != total {
		t.Fatalf("expected %d sent, got %d", total, result.Sent)
	}
	got := sink.timestamps()
	for i := range got {
		if got[i] != int64(i) {
			t.Fatalf("send %d out of order: %d", i, got[i])
		}
	}
}

func TestNextIntervalEscalatesUnderPressure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	u := newUploader(t, store, &recordingSink{})

	if got := u.NextInterval(backpressure.Status{Depth: 1, Level: backpressure.LevelNormal}); got != time.Minute {
		t.Fatalf("expected relaxed interval, got %s", got)
	}
	if got := u.NextInterval(backpressure.Status{Depth: 50, Level: backpressure.LevelElevated}); got != time.Second {
		t.Fatalf("expected escalated interval, got %s", got)
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := uploader.New(nil, &recordingSink{}, uploader.Options{PollInterval: time.Second}, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := uploader.New(store, &recordingSink{}, uploader.Options{}, nil); err == nil {
		t.Fatal("expected error for zero poll interval")
	}
}

func TestRunDeliversUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustInsert(t, store, testsupport.Sample(1))

	sink := &recordingSink{records: make(chan telemetry.Record, 1)}
	u := newUploader(t, store, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()

	select {
	case <-sink.records:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
