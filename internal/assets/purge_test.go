package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func age(t *testing.T, p string, d time.Duration) {
	t.Helper()
	old := time.Now().Add(-d)
	if err := os.Chtimes(p, old, old); err != nil {
		t.Fatalf("chtimes %s: %v", p, err)
	}
}

func TestPurgeStale(t *testing.T) {
	dirs := testDirs(t)
	cache := newFakeCache()
	mappings := &fakeMappings{}
	r := newTestResolver(t, dirs, WithCache(cache), WithMappings(mappings))

	stale := touch(t, dirs.RecentUploads, "hero-1-1.png")
	age(t, stale, 72*time.Hour)
	staleText := touch(t, dirs.RecentUploads, "notes.txt")
	age(t, staleText, 72*time.Hour)
	fresh := touch(t, dirs.RecentUploads, "hero-2-2.png")

	sub := filepath.Join(dirs.RecentUploads, "keep")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	age(t, sub, 72*time.Hour)

	// Files outside recent uploads are never touched.
	other := touch(t, dirs.Uploads, "old-1-1.png")
	age(t, other, 720*time.Hour)

	n, err := r.PurgeStale(context.Background(), 1)
	if err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	for _, p := range []string{stale, staleText} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s should be deleted", p)
		}
	}
	for _, p := range []string{fresh, sub, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should survive: %v", p, err)
		}
	}
	if cache.cleared != 1 {
		t.Errorf("cache cleared %d times, want 1", cache.cleared)
	}
	if len(mappings.deleted) != 2 {
		t.Errorf("mapping cleanup got %v, want 2 paths", mappings.deleted)
	}
}

func TestPurgeStaleNothingToDo(t *testing.T) {
	dirs := testDirs(t)
	cache := newFakeCache()
	r := newTestResolver(t, dirs, WithCache(cache))
	touch(t, dirs.RecentUploads, "hero-1-1.png")

	n, err := r.PurgeStale(context.Background(), 7)
	if err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted = %d, want 0", n)
	}
	if cache.cleared != 0 {
		t.Error("cache should not be cleared when nothing was deleted")
	}
}

func TestPurgeStaleMissingDirectory(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)
	if err := os.RemoveAll(dirs.RecentUploads); err != nil {
		t.Fatal(err)
	}

	n, err := r.PurgeStale(context.Background(), 1)
	if err != nil || n != 0 {
		t.Errorf("PurgeStale = (%d, %v), want (0, nil)", n, err)
	}
}

func TestPurgeStaleRejectsNegativeAge(t *testing.T) {
	r := newTestResolver(t, testDirs(t))
	if _, err := r.PurgeStale(context.Background(), -1); err == nil {
		t.Error("expected error for negative max age")
	}
}

func TestPurgerRunStopsOnCancel(t *testing.T) {
	dirs := testDirs(t)
	r := newTestResolver(t, dirs)
	stale := touch(t, dirs.RecentUploads, "hero-1-1.png")
	age(t, stale, 48*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewPurger(r, time.Hour, 1).Run(ctx)
		close(done)
	}()

	// The first sweep runs immediately.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(stale); errors.Is(err, os.ErrNotExist) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("initial sweep did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
