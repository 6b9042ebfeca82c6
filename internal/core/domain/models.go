package domain

import "errors"

// TimestampLayout is the format used for all timestamps persisted in
// metadata.json and rendered in markdown output.
const TimestampLayout = "2006-01-02 15:04:05"

// Sentinel errors for the failure kinds the pipeline distinguishes.
// Fatal kinds (ErrInputNotFound, ErrCorruptMetadata, ErrInterrupted) abort
// the whole invocation; the per-file kinds are converted into ErrorRecords
// at the file-processing boundary and never unwind past the pipeline.
var (
	ErrInputNotFound       = errors.New("input path does not exist")
	ErrCorruptMetadata     = errors.New("metadata file is not parseable")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrInterrupted         = errors.New("processing interrupted")
)

// FileRecord is the persisted proof that a source file has been processed
// successfully. Records are keyed by absolute source path and overwritten
// in place on reprocess.
type FileRecord struct {
	File          string `json:"file"`
	Size          int64  `json:"size"`
	Output        string `json:"output"`
	LastProcessed string `json:"last_processed"`
}

// ErrorRecord describes one failed file from the current session only.
type ErrorRecord struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Metadata is the sidecar structure persisted as metadata.json in each
// output directory. The errors list always reflects the latest session;
// prior sessions' errors are overwritten, not accumulated.
type Metadata struct {
	FilesProcessed        []FileRecord  `json:"files_processed"`
	TotalFiles            int           `json:"total_files"`
	ProcessingTimeSeconds float64       `json:"processing_time_seconds"`
	Errors                []ErrorRecord `json:"errors"`
	ErrorCount            int           `json:"error_count"`
	LastUpdated           string        `json:"last_updated"`
}

// RecordsByPath returns the processed-file records keyed by absolute path.
func (m *Metadata) RecordsByPath() map[string]FileRecord {
	records := make(map[string]FileRecord, len(m.FilesProcessed))
	for _, r := range m.FilesProcessed {
		records[r.File] = r
	}
	return records
}

// RunSummary holds the outcome of one pipeline invocation.
type RunSummary struct {
	RunID          string
	InputPath      string
	OutputDir      string
	SuccessCount   int
	AttemptedCount int
	SkippedCount   int
	Errors         []ErrorRecord
}
