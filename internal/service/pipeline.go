package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/r-uben/mistral-ocr-cli/internal/config"
	"github.com/r-uben/mistral-ocr-cli/internal/core/domain"
	"github.com/r-uben/mistral-ocr-cli/internal/core/ports"
	"github.com/r-uben/mistral-ocr-cli/internal/discovery"
	"github.com/r-uben/mistral-ocr-cli/internal/materialize"
	"github.com/r-uben/mistral-ocr-cli/internal/metadata"
)

const defaultOutputFolder = "mistral_ocr_output"

// Options are the per-invocation flags controlling one run.
type Options struct {
	OutputPath   string
	Reprocess    bool
	AddTimestamp bool
}

// Pipeline coordinates discovery, skip-filtering, sequential OCR invocation,
// result materialization, and metadata persistence. Files are processed one
// at a time in discovery order; per-file failures are isolated and never
// abort the rest of the batch.
type Pipeline struct {
	client ports.OcrClient
	cfg    *config.Config
	logger *log.Logger
}

// NewPipeline creates a new Pipeline.
func NewPipeline(client ports.OcrClient, cfg *config.Config, logger *log.Logger) *Pipeline {
	return &Pipeline{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Run processes inputPath, which may be a single file or a directory.
// It returns a summary of successes, skips, and per-file errors; the
// returned error is non-nil only for fatal conditions (missing input,
// corrupt metadata, interruption).
func (p *Pipeline) Run(ctx context.Context, inputPath string, opts Options) (*domain.RunSummary, error) {
	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input path: %w", err)
	}

	info, err := os.Stat(absInput)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, inputPath)
		}
		return nil, fmt.Errorf("failed to stat input path: %w", err)
	}

	runID := uuid.New().String()
	summary := &domain.RunSummary{RunID: runID, InputPath: absInput}
	p.logger.Printf("[RUN %s] Starting run for %s", runID, absInput)

	if info.IsDir() {
		err = p.runDirectory(ctx, summary, absInput, opts)
	} else {
		err = p.runFile(ctx, summary, absInput, opts)
	}
	if err != nil {
		return summary, err
	}

	p.logger.Printf("[RUN %s] Run completed: %d/%d processed, %d skipped, %d failed",
		runID, summary.SuccessCount, summary.AttemptedCount, summary.SkippedCount, len(summary.Errors))
	return summary, nil
}

func (p *Pipeline) runFile(ctx context.Context, summary *domain.RunSummary, absPath string, opts Options) error {
	outputDir := resolveOutputDir(absPath, false, opts)
	summary.OutputDir = outputDir

	meta, err := metadata.Load(outputDir)
	if err != nil {
		return err
	}
	if ShouldSkip(absPath, meta.RecordsByPath(), opts.Reprocess) {
		p.logger.Printf("[RUN %s] %s already processed, skipping (use -reprocess to force)",
			summary.RunID, filepath.Base(absPath))
		summary.SkippedCount = 1
		return nil
	}

	start := time.Now()
	record, errRecord := p.processOne(ctx, summary.RunID, absPath, outputDir)
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", domain.ErrInterrupted, ctx.Err())
	}

	summary.AttemptedCount = 1
	var newRecords []domain.FileRecord
	var errs []domain.ErrorRecord
	if record != nil {
		summary.SuccessCount = 1
		newRecords = append(newRecords, *record)
	} else {
		errs = append(errs, *errRecord)
		summary.Errors = errs
	}

	return metadata.Save(outputDir, newRecords, time.Since(start).Seconds(), errs)
}

func (p *Pipeline) runDirectory(ctx context.Context, summary *domain.RunSummary, absDir string, opts Options) error {
	files, err := discovery.FindSupportedFiles(absDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		p.logger.Printf("[RUN %s] No supported files found in %s", summary.RunID, absDir)
		return nil
	}

	outputDir := resolveOutputDir(absDir, true, opts)
	summary.OutputDir = outputDir

	meta, err := metadata.Load(outputDir)
	if err != nil {
		return err
	}
	records := meta.RecordsByPath()

	var toProcess []string
	for _, f := range files {
		if ShouldSkip(f, records, opts.Reprocess) {
			summary.SkippedCount++
			if p.cfg.Verbose {
				p.logger.Printf("[RUN %s] Skipping %s (already processed)", summary.RunID, filepath.Base(f))
			}
			continue
		}
		toProcess = append(toProcess, f)
	}
	if len(toProcess) == 0 {
		p.logger.Printf("[RUN %s] All %d file(s) already processed, nothing to do", summary.RunID, len(files))
		return nil
	}

	p.logger.Printf("[RUN %s] Processing %d file(s), output directory: %s", summary.RunID, len(toProcess), outputDir)

	start := time.Now()
	var newRecords []domain.FileRecord
	var errs []domain.ErrorRecord

	for i, f := range toProcess {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", domain.ErrInterrupted, ctx.Err())
		}
		if p.cfg.Verbose {
			p.logger.Printf("[RUN %s] File %d/%d", summary.RunID, i+1, len(toProcess))
		}

		record, errRecord := p.processOne(ctx, summary.RunID, f, outputDir)
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", domain.ErrInterrupted, ctx.Err())
		}
		summary.AttemptedCount++
		if record != nil {
			summary.SuccessCount++
			newRecords = append(newRecords, *record)
		} else {
			errs = append(errs, *errRecord)
		}
	}
	summary.Errors = errs

	return metadata.Save(outputDir, newRecords, time.Since(start).Seconds(), errs)
}

// processOne handles a single file through size validation, the OCR call,
// and result materialization. Failures are converted into an ErrorRecord
// at this boundary; they never propagate further.
func (p *Pipeline) processOne(ctx context.Context, runID, absPath, outputDir string) (*domain.FileRecord, *domain.ErrorRecord) {
	name := filepath.Base(absPath)

	info, err := os.Stat(absPath)
	if err != nil {
		return p.fail(runID, absPath, fmt.Errorf("failed to stat file: %w", err))
	}
	p.logger.Printf("[RUN %s] Processing %s (%s)...", runID, name, formatFileSize(info.Size()))

	// The size ceiling is enforced before any network call.
	if info.Size() > p.cfg.MaxFileSizeBytes() {
		return p.fail(runID, absPath, fmt.Errorf("%w: file size (%s) exceeds maximum allowed size (%d MB)",
			domain.ErrFileTooLarge, formatFileSize(info.Size()), p.cfg.MaxFileSizeMB))
	}

	resp, err := p.client.Process(ctx, absPath)
	if err != nil {
		return p.fail(runID, absPath, err)
	}

	outputPath, err := materialize.WriteResult(absPath, resp, outputDir, p.cfg.IncludeImages)
	if err != nil {
		return p.fail(runID, absPath, err)
	}
	if p.cfg.Verbose {
		p.logger.Printf("[RUN %s] Saved results to %s", runID, outputPath)
	}

	return &domain.FileRecord{
		File:          absPath,
		Size:          info.Size(),
		Output:        outputPath,
		LastProcessed: time.Now().Format(domain.TimestampLayout),
	}, nil
}

func (p *Pipeline) fail(runID, absPath string, err error) (*domain.FileRecord, *domain.ErrorRecord) {
	p.logger.Printf("[RUN %s] ERROR: %s: %v", runID, filepath.Base(absPath), err)
	return nil, &domain.ErrorRecord{File: absPath, Error: err.Error()}
}

// ShouldSkip reports whether absPath is already recorded as processed and
// reprocessing was not requested. Pure function over its inputs.
func ShouldSkip(absPath string, records map[string]domain.FileRecord, reprocess bool) bool {
	if reprocess {
		return false
	}
	_, ok := records[absPath]
	return ok
}

func resolveOutputDir(absInput string, isDir bool, opts Options) string {
	if opts.OutputPath != "" {
		return opts.OutputPath
	}
	parent := absInput
	if !isDir {
		parent = filepath.Dir(absInput)
	}
	name := defaultOutputFolder
	if opts.AddTimestamp {
		name += "_" + time.Now().Format("20060102_150405")
	}
	return filepath.Join(parent, name)
}

func formatFileSize(size int64) string {
	const unit = 1024.0
	s := float64(size)
	for _, u := range []string{"B", "KB", "MB", "GB"} {
		if s < unit {
			return fmt.Sprintf("%.2f %s", s, u)
		}
		s /= unit
	}
	return fmt.Sprintf("%.2f TB", s)
}
