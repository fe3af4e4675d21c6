package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileStore_LoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if _, err := fs.Get(context.Background(), "anything"); err != ErrNotFound {
		t.Errorf("Get on empty store = %v; want ErrNotFound", err)
	}
}

func TestFileStore_SetGetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := fs.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// reopen from disk
	fs2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := fs2.Get(ctx, "theme")
	if err != nil || got != "dark" {
		t.Errorf("Get after reopen = (%q, %v); want (dark, nil)", got, err)
	}
}

func TestFileStore_KeysPrefixSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	fs, _ := NewFileStore(path)
	for _, k := range []string{"pm:cart", "pm:favs", "token", "pm:borrows"} {
		if err := fs.Set(ctx, k, "v"); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}

	keys, err := fs.Keys(ctx, "pm:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	want := []string{"pm:borrows", "pm:cart", "pm:favs"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys = %v; want %v", keys, want)
	}
}

func TestFileStore_DeleteAndClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	fs, _ := NewFileStore(path)
	fs.Set(ctx, "a", "1")
	fs.Set(ctx, "b", "2")

	if err := fs.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := fs.Delete(ctx, "nonexistent"); err != nil {
		t.Errorf("Delete of absent key = %v; want nil", err)
	}
	if _, err := fs.Get(ctx, "a"); err != ErrNotFound {
		t.Errorf("Get after delete = %v; want ErrNotFound", err)
	}

	if err := fs.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	keys, _ := fs.Keys(ctx, "")
	if len(keys) != 0 {
		t.Errorf("keys after Clear = %v; want empty", keys)
	}

	// clear must hit the disk too
	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal(buf, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("persisted entries after Clear = %v; want empty", out)
	}
}
