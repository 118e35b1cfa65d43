package golokal_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/ZaguanLabs/golokal"
	"github.com/ZaguanLabs/golokal/cache"
	"github.com/ZaguanLabs/golokal/golokaltest"
)

// Integration tests using all real components

func TestIntegration_RestartServesPersistedCacheOffline(t *testing.T) {
	storages := map[string]func(t *testing.T) cache.Storage{
		"file": func(t *testing.T) cache.Storage {
			s, err := cache.NewFileStorage(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStorage failed: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) cache.Storage {
			s, err := cache.OpenSQLiteStorage(filepath.Join(t.TempDir(), "cache.db"))
			if err != nil {
				t.Fatalf("OpenSQLiteStorage failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}

	for name, open := range storages {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			storage := open(t)

			srv := golokaltest.NewServer(testKey)
			srv.SetTranslations("en", "default", golokal.TranslationMap{"title": "Welcome, {{user}}"})

			first := newClient(t, srv.URL, storage)
			if err := first.Sync(ctx); err != nil {
				t.Fatalf("Sync failed: %v", err)
			}
			first.Destroy()
			srv.Close()

			// Second process start with the API unreachable
			second := newClient(t, srv.URL, storage)
			second.Init(ctx)

			got := golokal.Interpolate(second.Translations("en", "default")["title"], map[string]any{"user": "Ada"})
			if got != "Welcome, Ada" {
				t.Errorf("offline start rendered %q", got)
			}
		})
	}
}

func TestIntegration_ConditionalAfterRestart(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	srv.OmitVersion()
	storage := cache.NewMemoryStorage()

	first := newClient(t, srv.URL, storage)
	if err := first.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	first.Destroy()

	second := newClient(t, srv.URL, storage)
	second.Store().Load(ctx)
	if err := second.Sync(ctx); err != nil {
		t.Fatalf("Sync after restart failed: %v", err)
	}

	if srv.NotModified() != 2 {
		t.Errorf("persisted validators not reused: %d conditional hits", srv.NotModified())
	}
}

func TestIntegration_CredentialsShareStorage(t *testing.T) {
	ctx := context.Background()
	storage := cache.NewMemoryStorage()

	a := golokaltest.NewServer("tenant-a")
	defer a.Close()
	a.SetTranslations("en", "default", golokal.TranslationMap{"name": "A"})
	b := golokaltest.NewServer("tenant-b")
	defer b.Close()
	b.SetTranslations("en", "default", golokal.TranslationMap{"name": "B"})

	for _, tc := range []struct{ key, url string }{{"tenant-a", a.URL}, {"tenant-b", b.URL}} {
		client, err := golokal.NewClient(golokal.Config{
			APIKey:        tc.key,
			BaseURL:       tc.url,
			DefaultLocale: "en",
			Storage:       storage,
		})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		if err := client.Sync(ctx); err != nil {
			t.Fatalf("Sync for %s failed: %v", tc.key, err)
		}
	}

	if storage.Len() != 2 {
		t.Fatalf("expected one blob per credential, got %d", storage.Len())
	}
	reloaded := cache.NewStore("tenant-a", storage)
	reloaded.Load(ctx)
	if reloaded.Translations("en", "default")["name"] != "A" {
		t.Error("tenant-a cache overwritten")
	}
}

func TestIntegration_ExportImport(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	source := newClient(t, srv.URL, nil)
	if err := source.Sync(ctx); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	var buf bytes.Buffer
	if err := cache.NewExporter(source.Store()).Export(&buf, map[string]string{"env": "staging"}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	target := newClient(t, "http://127.0.0.1:1", nil)
	result, err := cache.NewImporter(target.Store()).Import(ctx, &buf)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Namespaces != 2 || result.Metadata["env"] != "staging" {
		t.Errorf("unexpected import result: %+v", result)
	}
	if target.Translations("en", "marketing")["cta"] != "Sign up" {
		t.Error("imported translations not served")
	}
}
