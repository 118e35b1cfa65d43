package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestExporter_Export(t *testing.T) {
	s := NewStore("k", NewMemoryStorage())
	s.Put("en", "default", TranslationMap{"hello": "Hello"}, `"e1"`)
	s.SetVersion("v1")

	var buf bytes.Buffer
	err := NewExporter(s).Export(&buf, map[string]string{"source": "test"})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var export ExportFormat
	if err := json.Unmarshal(buf.Bytes(), &export); err != nil {
		t.Fatalf("Failed to parse export: %v", err)
	}

	if export.FormatVersion != ExportFormatVersion {
		t.Errorf("Expected format %s, got %s", ExportFormatVersion, export.FormatVersion)
	}
	if export.Data.Translations["en"]["default"]["hello"] != "Hello" {
		t.Errorf("Export missing translation: %+v", export.Data)
	}
	if export.Data.ETags["en:default"] != `"e1"` {
		t.Errorf("Export missing etag: %+v", export.Data.ETags)
	}
	if export.Metadata["source"] != "test" {
		t.Errorf("Expected metadata source=test, got %v", export.Metadata)
	}
}

func TestImporter_Import(t *testing.T) {
	jsonData := `{
		"format_version": "1.0",
		"exported_at": "2026-01-01T00:00:00Z",
		"data": {
			"translations": {"en": {"default": {"a": "A", "b": "B"}, "marketing": {"c": "C"}}},
			"etags": {"en:default": "\"x\""},
			"version": "v9"
		},
		"metadata": {"source": "test"}
	}`

	storage := NewMemoryStorage()
	s := NewStore("k", storage)

	result, err := NewImporter(s).Import(context.Background(), strings.NewReader(jsonData))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if result.Locales != 1 || result.Namespaces != 2 || result.Keys != 3 {
		t.Errorf("unexpected stats: %+v", result)
	}
	if s.Version() != "v9" {
		t.Errorf("Version = %q, want v9", s.Version())
	}
	if storage.Len() != 1 {
		t.Error("Import should persist the store")
	}
}

func TestImporter_InvalidJSON(t *testing.T) {
	s := NewStore("k", NewMemoryStorage())

	_, err := NewImporter(s).Import(context.Background(), strings.NewReader("invalid json"))
	if err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestImporter_UnknownFormat(t *testing.T) {
	s := NewStore("k", NewMemoryStorage())

	_, err := NewImporter(s).Import(context.Background(), strings.NewReader(`{"format_version":"9"}`))
	if err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestExportImport_FileRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewStore("k", NewMemoryStorage())
	src.Put("fr", "default", TranslationMap{"hello": "Bonjour"}, `"f1"`)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := NewExporter(src).ExportToFile(path, nil); err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	dst := NewStore("k", NewMemoryStorage())
	if _, err := NewImporter(dst).ImportFromFile(ctx, path); err != nil {
		t.Fatalf("ImportFromFile failed: %v", err)
	}

	if dst.Translations("fr", "default")["hello"] != "Bonjour" {
		t.Error("round trip lost translation")
	}
	if etag, _ := dst.ETag("fr", "default"); etag != `"f1"` {
		t.Errorf("round trip lost etag, got %q", etag)
	}
}
