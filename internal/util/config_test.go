package util

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadStoreAndGet(t *testing.T) {
	path := writeConfig(t, `
name = "tern"
workers = 4

[db]
driver = "sqlite3"
pool_size = 16

[db.limits]
max_rows = 1000
`)
	store, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}

	tests := []struct {
		key  string
		want interface{}
	}{
		{"name", "tern"},
		{"workers", int64(4)},
		{"db.driver", "sqlite3"},
		{"db.pool_size", int64(16)},
		{"db.limits.max_rows", int64(1000)},
	}
	for _, tt := range tests {
		got, ok := store.Get(tt.key)
		if !ok {
			t.Errorf("key %q not found", tt.key)
			continue
		}
		if got != tt.want {
			t.Errorf("key %q = %v (%T), want %v", tt.key, got, got, tt.want)
		}
	}
}

func TestGetMissingKey(t *testing.T) {
	path := writeConfig(t, "name = \"tern\"\n")
	store, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}

	if _, ok := store.Get("absent"); ok {
		t.Errorf("absent key reported present")
	}
	if _, ok := store.Get("name.nested"); ok {
		t.Errorf("traversal through a scalar reported present")
	}
}

func TestLoadStoreEmptyPath(t *testing.T) {
	store, err := LoadStore("")
	if err != nil {
		t.Fatalf("empty path should yield an empty store: %v", err)
	}
	if _, ok := store.Get("anything"); ok {
		t.Errorf("empty store returned a value")
	}
}

func TestLoadStoreBadFile(t *testing.T) {
	path := writeConfig(t, "not valid toml = = =")
	store, err := LoadStore(path)
	if err == nil {
		t.Fatalf("malformed TOML did not error")
	}
	// Even on failure the store must be usable.
	if _, ok := store.Get("anything"); ok {
		t.Errorf("failed load returned a value")
	}
}

func TestZeroValueStore(t *testing.T) {
	var store Store
	if _, ok := store.Get("anything"); ok {
		t.Errorf("zero-value store returned a value")
	}
}
