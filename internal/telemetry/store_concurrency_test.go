package telemetry_test

import (
	"context"
	"sync"
	"testing"

	"trackbuf/internal/testsupport"
)

func TestConcurrentInsertsAssignUniqueIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	const (
		writers   = 8
		perWriter = 25
	)
	ctx := context.Background()
	ids := make(chan int64, writers*perWriter)
	errs := make(chan error, writers*perWriter)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id, err := store.Insert(ctx, testsupport.Sample(int64(w*perWriter+i)))
				if err != nil {
					errs <- err
					continue
				}
				ids <- id
			}
		}(w)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent insert failed: %v", err)
	}
	seen := make(map[int64]struct{}, writers*perWriter)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d assigned", id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != writers*perWriter {
		t.Fatalf("expected %d ids, got %d", writers*perWriter, len(seen))
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != writers*perWriter {
		t.Fatalf("expected count %d, got %d", writers*perWriter, count)
	}
}

func TestUnsentNeverReturnsCommittedDeletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	const total = 40
	ids := make([]int64, 0, total)
	for i := 0; i < total; i++ {
		ids = append(ids, testsupport.MustInsert(t, store, testsupport.Sample(int64(i))))
	}

	var (
		mu      sync.Mutex
		deleted = make(map[int64]struct{}, total)
	)
	done := make(chan struct{})
	readerErr := make(chan error, 1)

	go func() {
		defer close(readerErr)
		for {
			select {
			case <-done:
				return
			default:
			}
			// Snapshot the committed deletes before the read begins.
			mu.Lock()
			committed := make(map[int64]struct{}, len(deleted))
			for id := range deleted {
				committed[id] = struct{}{}
			}
			mu.Unlock()

			records, err := store.Unsent(ctx)
			if err != nil {
				readerErr <- err
				return
			}
			for _, rec := range records {
				if _, gone := committed[rec.ID]; gone {
					t.Errorf("record %d returned after its delete committed", rec.ID)
					return
				}
			}
		}
	}()

	for _, id := range ids {
		if err := store.Delete(ctx, id); err != nil {
			close(done)
			t.Fatalf("Delete failed: %v", err)
		}
		mu.Lock()
		deleted[id] = struct{}{}
		mu.Unlock()
	}
	close(done)

	if err, ok := <-readerErr; ok && err != nil {
		t.Fatalf("concurrent Unsent failed: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty buffer, got %d", count)
	}
}
