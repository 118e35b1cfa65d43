package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ExportFormatVersion identifies the snapshot layout written by Exporter.
const ExportFormatVersion = "1.0"

// ExportFormat represents the JSON structure for cache export/import.
type ExportFormat struct {
	FormatVersion string            `json:"format_version"`
	ExportedAt    string            `json:"exported_at"`
	Data          CachedData        `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Exporter writes store snapshots.
type Exporter struct {
	store *Store
}

// NewExporter creates a new cache exporter.
func NewExporter(store *Store) *Exporter {
	return &Exporter{store: store}
}

// Export writes the store contents to w in JSON format.
func (e *Exporter) Export(w io.Writer, metadata map[string]string) error {
	export := ExportFormat{
		FormatVersion: ExportFormatVersion,
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		Data:          e.store.Snapshot(),
		Metadata:      metadata,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}

// ExportToFile exports the store to a file.
// The path is provided by the caller and is intentionally user-controlled.
func (e *Exporter) ExportToFile(path string, metadata map[string]string) error {
	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	return e.Export(f, metadata)
}

// ImportResult contains statistics about the import operation.
type ImportResult struct {
	FormatVersion string
	Metadata      map[string]string
	Locales       int
	Namespaces    int
	Keys          int
}

// Importer loads snapshots into a store.
type Importer struct {
	store *Store
}

// NewImporter creates a new cache importer.
func NewImporter(store *Store) *Importer {
	return &Importer{store: store}
}

// Import replaces the store contents with the snapshot read from r and persists it.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	if export.FormatVersion != ExportFormatVersion {
		return nil, fmt.Errorf("unsupported export format %q", export.FormatVersion)
	}

	i.store.Replace(export.Data)
	if err := i.store.Save(ctx); err != nil {
		return nil, err
	}

	result := &ImportResult{
		FormatVersion: export.FormatVersion,
		Metadata:      export.Metadata,
		Locales:       len(export.Data.Translations),
	}
	for _, namespaces := range export.Data.Translations {
		result.Namespaces += len(namespaces)
		for _, m := range namespaces {
			result.Keys += len(m)
		}
	}

	return result, nil
}

// ImportFromFile imports a snapshot from a file.
// The path is provided by the caller and is intentionally user-controlled.
func (i *Importer) ImportFromFile(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f)
}
