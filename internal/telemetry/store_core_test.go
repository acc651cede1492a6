package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func TestOperationsOnPoolClosedUnderneathReportUnavailable(t *testing.T) {
	store, err := OpenPath(filepath.Join(t.TempDir(), "telemetry.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	// Close the pool without flipping the closed flag, as a concurrent Close
	// racing an in-flight call would.
	if err := store.db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	ctx := context.Background()
	if _, err := store.Insert(ctx, Record{Timestamp: 1}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Insert err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := store.Unsent(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Unsent err = %v, want ErrStorageUnavailable", err)
	}
	if err := store.Delete(ctx, 1); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Delete err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := store.Count(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Count err = %v, want ErrStorageUnavailable", err)
	}
}

func TestClassifyConnDone(t *testing.T) {
	err := classify(fmt.Errorf("begin tx: %w", sql.ErrConnDone))
	if !errors.Is(err, ErrStorageUnavailable) || !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("classify(ErrConnDone) = %v", err)
	}
	if err := classify(errors.New("some other failure")); errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("unexpected classification: %v", err)
	}
}
