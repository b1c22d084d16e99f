package config

import (
	"context"
	"path/filepath"
	"testing"
)

func TestCreateStorage_Memory(t *testing.T) {
	st, err := CreateStorage(context.Background(), &StorageConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateStorage() failed: %v", err)
	}
	if st == nil {
		t.Fatal("expected a storage, got nil")
	}
}

func TestCreateStorage_Filesystem(t *testing.T) {
	ctx := context.Background()
	cfg := &StorageConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": filepath.Join(t.TempDir(), "data")},
	}

	st, err := CreateStorage(ctx, cfg)
	if err != nil {
		t.Fatalf("CreateStorage() failed: %v", err)
	}

	// The base directory is usable right away.
	if err := st.NewFolder(ctx, "docs"); err != nil {
		t.Errorf("NewFolder() on fresh storage failed: %v", err)
	}
}

func TestCreateStorage_FilesystemRequiresPath(t *testing.T) {
	_, err := CreateStorage(context.Background(), &StorageConfig{Type: "filesystem"})
	if err == nil {
		t.Error("expected error for filesystem storage without path")
	}
}

func TestCreateStorage_UnknownType(t *testing.T) {
	_, err := CreateStorage(context.Background(), &StorageConfig{Type: "tape"})
	if err == nil {
		t.Error("expected error for unknown storage type")
	}
}

func TestCreateCache_Memory(t *testing.T) {
	c, closer, err := CreateCache(context.Background(), &CacheConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateCache() failed: %v", err)
	}
	if c == nil {
		t.Fatal("expected a cache, got nil")
	}
	if err := closer(); err != nil {
		t.Errorf("closer failed: %v", err)
	}
}

func TestCreateCache_Badger(t *testing.T) {
	cfg := &CacheConfig{
		Type:   "badger",
		Badger: map[string]any{"path": t.TempDir()},
	}

	c, closer, err := CreateCache(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateCache() failed: %v", err)
	}
	defer func() {
		if err := closer(); err != nil {
			t.Errorf("closer failed: %v", err)
		}
	}()
	if c == nil {
		t.Fatal("expected a cache, got nil")
	}
}

func TestCreateCache_BadgerRequiresPath(t *testing.T) {
	_, _, err := CreateCache(context.Background(), &CacheConfig{Type: "badger"})
	if err == nil {
		t.Error("expected error for badger cache without path")
	}
}

func TestCreateCache_UnknownType(t *testing.T) {
	_, _, err := CreateCache(context.Background(), &CacheConfig{Type: "redis"})
	if err == nil {
		t.Error("expected error for unknown cache type")
	}
}

func TestMembershipTable(t *testing.T) {
	cfg := &CollectivesConfig{
		Memberships: map[string][]MembershipEntry{
			"alice": {{ID: 101, DisplayName: "Garden Club"}},
			"bob":   {{ID: 7, DisplayName: "Chess"}, {ID: 9, DisplayName: "Hiking"}},
		},
	}

	table := cfg.MembershipTable()
	if len(table) != 2 {
		t.Fatalf("expected 2 principals, got %d", len(table))
	}
	if len(table["bob"]) != 2 {
		t.Fatalf("expected 2 memberships for bob, got %d", len(table["bob"]))
	}
	if table["alice"][0].ID != 101 || table["alice"][0].DisplayName != "Garden Club" {
		t.Errorf("unexpected alice membership: %+v", table["alice"][0])
	}
}
