package cache

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStorage_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteStorage failed: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	val, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(val) != "v2" {
		t.Fatalf("Get = %q ok=%v err=%v", val, ok, err)
	}

	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("key still present after Remove")
	}
}

func TestSQLiteStorage_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenSQLiteStorage(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStorage failed: %v", err)
	}
	store := NewStore("lok_sql", s)
	store.Put("de", "default", TranslationMap{"hello": "Hallo"}, `"d1"`)
	if err := store.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.Close()

	s2, err := OpenSQLiteStorage(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	reloaded := NewStore("lok_sql", s2)
	if !reloaded.Load(ctx) {
		t.Fatal("expected blob after reopen")
	}
	if reloaded.Translations("de", "default")["hello"] != "Hallo" {
		t.Error("translation lost across reopen")
	}
}

func TestOpenSQLiteStorage_EmptyPath(t *testing.T) {
	if _, err := OpenSQLiteStorage("  "); err == nil {
		t.Error("expected error for empty path")
	}
}
