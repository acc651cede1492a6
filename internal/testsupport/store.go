package testsupport

import (
	"context"
	"testing"

	"trackbuf/internal/config"
	"trackbuf/internal/telemetry"
)

// MustOpenStore opens a telemetry.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *telemetry.Store {
	t.Helper()

	store, err := telemetry.Open(cfg)
	if err != nil {
		t.Fatalf("telemetry.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Sample returns a record with plausible coordinates at the given timestamp.
func Sample(timestamp int64) telemetry.Record {
	return telemetry.Record{
		Timestamp: timestamp,
		Lat:       21.1458,
		Lng:       79.0882,
		Speed:     8.5,
	}
}

// MustInsert inserts rec and returns its identifier.
func MustInsert(t testing.TB, store *telemetry.Store, rec telemetry.Record, opts ...telemetry.InsertOption) int64 {
	t.Helper()

	id, err := store.Insert(context.Background(), rec, opts...)
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return id
}
