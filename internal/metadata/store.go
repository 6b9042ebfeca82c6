package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/r-uben/mistral-ocr-cli/internal/core/domain"
)

// Filename is the sidecar file written to each output directory.
const Filename = "metadata.json"

// Load reads the metadata sidecar from outputDir. A missing file is not an
// error and yields a zero-valued Metadata; an existing but unparseable file
// yields domain.ErrCorruptMetadata so the caller can abort instead of
// silently discarding processing history.
func Load(outputDir string) (*domain.Metadata, error) {
	path := filepath.Join(outputDir, Filename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &domain.Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var meta domain.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptMetadata, path, err)
	}
	return &meta, nil
}

// Save merges newRecords into the existing sidecar keyed by absolute source
// path (new entries inserted, existing ones fully overwritten), adds
// elapsedSeconds to the cumulative processing time, replaces the error list
// with currentErrors, stamps last_updated, and writes the whole structure
// back as pretty-printed JSON.
//
// The error list is intentionally replaced rather than appended: the sidecar
// reports the latest session's errors only. The read-merge-write is not
// transactional; concurrent writers to the same output directory will race.
func Save(outputDir string, newRecords []domain.FileRecord, elapsedSeconds float64, currentErrors []domain.ErrorRecord) error {
	existing, err := Load(outputDir)
	if err != nil {
		return err
	}

	merged := existing.RecordsByPath()
	for _, r := range newRecords {
		merged[r.File] = r
	}

	paths := make([]string, 0, len(merged))
	for p := range merged {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	records := make([]domain.FileRecord, 0, len(merged))
	for _, p := range paths {
		records = append(records, merged[p])
	}

	if currentErrors == nil {
		currentErrors = []domain.ErrorRecord{}
	}

	meta := domain.Metadata{
		FilesProcessed:        records,
		TotalFiles:            len(records),
		ProcessingTimeSeconds: existing.ProcessingTimeSeconds + elapsedSeconds,
		Errors:                currentErrors,
		ErrorCount:            len(currentErrors),
		LastUpdated:           time.Now().Format(domain.TimestampLayout),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	path := filepath.Join(outputDir, Filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
