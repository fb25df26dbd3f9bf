package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestNewSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore(:memory:) returned error: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Fatal("NewSQLiteStore(:memory:) db field is nil")
	}
}

func TestSQLiteStore_PutAndGet(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	want := `[{"id":"SCN-240101-001","url":"https://example.com"}]`

	if err := store.Put(ctx, KeyScans, []byte(want)); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := store.Get(ctx, KeyScans)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != want {
		t.Errorf("Get = %q, want %q", got, want)
	}
}

func TestSQLiteStore_PutOverwrites(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, KeyScanResults, []byte(`[1]`)); err != nil {
		t.Fatalf("Put #1: %v", err)
	}
	if err := store.Put(ctx, KeyScanResults, []byte(`[1,2]`)); err != nil {
		t.Fatalf("Put #2: %v", err)
	}

	got, err := store.Get(ctx, KeyScanResults)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[1,2]` {
		t.Errorf("Get = %q, want %q", got, `[1,2]`)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List returned %d entries, want 1", len(entries))
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	_, err = store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Put(ctx, KeyScanConfig, []byte(`{}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, KeyScanConfig); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, KeyScanConfig); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete(missing) returned error: %v", err)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, k := range []string{KeyScanConfig, KeyScans, KeyScanResults} {
		if err := store.Put(ctx, k, []byte(`[]`)); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(entries))
	}
	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.Key] = true
		if e.Size != 2 {
			t.Errorf("entry %s size = %d, want 2", e.Key, e.Size)
		}
		if e.UpdatedAt.IsZero() {
			t.Errorf("entry %s has zero UpdatedAt", e.Key)
		}
	}
	for _, k := range []string{KeyScanConfig, KeyScans, KeyScanResults} {
		if !seen[k] {
			t.Errorf("List missing key %s", k)
		}
	}
}

func TestSQLiteStore_FilePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := store.Put(ctx, KeyScans, []byte(`["a"]`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, KeyScans)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != `["a"]` {
		t.Errorf("Get after reopen = %q", got)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "etcd"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpen_SQLite(t *testing.T) {
	store, err := Open(context.Background(), Options{Driver: DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("Open returned %T, want *SQLiteStore", store)
	}
}
