// Package pipeline sequences extraction, anonymization and restructuring for
// each document and applies the per-phase failure policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/anonymize"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
)

type Extractor interface {
	Extract(ctx context.Context, path, password string) (*document.Record, error)
	SupportedFormats() []string
}

type Anonymizer interface {
	Available() bool
	Anonymize(ctx context.Context, rec *document.Record) (*document.Record, error)
	Sanitize(rec *document.Record) *document.Record
	Stats() anonymize.Stats
	Reset()
}

type Restructurer interface {
	Available(ctx context.Context) bool
	Model() string
	Restructure(ctx context.Context, rec *document.Record, maxAttempts int) (map[string]any, error)
	Validate(data map[string]any) error
}

// Options select the optional phases for one document.
type Options struct {
	Password    string
	Anonymize   bool
	Restructure bool
	MaxAttempts int // 0 uses the restructurer default
}

func DefaultOptions() Options {
	return Options{Anonymize: true, Restructure: true}
}

// Stats are running counters over every processed document.
type Stats struct {
	FilesProcessed      int        `json:"files_processed"`
	ExtractionErrors    int        `json:"extraction_errors"`
	AnonymizationErrors int        `json:"anonymization_errors"`
	RestructuringErrors int        `json:"restructuring_errors"`
	LastProcessed       *time.Time `json:"last_processed"`
}

// Processor coordinates extraction, then anonymization, then restructuring.
// It is safe for concurrent use; the anonymizer serializes access to the
// shared mapper session.
type Processor struct {
	logger       *slog.Logger
	extractor    Extractor
	anonymizer   Anonymizer
	restructurer Restructurer
	now          func() time.Time

	mu    sync.Mutex
	stats Stats
}

func NewProcessor(logger *slog.Logger, extractor Extractor, anonymizer Anonymizer, restructurer Restructurer) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:       logger,
		extractor:    extractor,
		anonymizer:   anonymizer,
		restructurer: restructurer,
		now:          time.Now,
	}
}

// ProcessDocument always returns a Result. The error is non-nil only when
// extraction failed, in which case the Result has no completed phases and
// the error wraps common.ErrExtraction.
func (p *Processor) ProcessDocument(ctx context.Context, path string, opts Options) (*Result, error) {
	start := time.Now()
	res := newResult(path, p.now())
	p.logger.Info("pipeline.document.start",
		"file_path", path,
		"task_id", common.TaskIDFromContext(ctx),
		"anonymize", opts.Anonymize,
		"restructure", opts.Restructure,
	)

	var anonErr, restErr bool
	defer func() {
		p.record(res, anonErr, restErr)
		p.logger.Info("pipeline.document.done",
			"file_path", path,
			"status", res.Status(),
			"phases", res.PhasesCompleted,
			"errors", len(res.Errors),
			"warnings", len(res.Warnings),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}()

	rec, err := p.extract(ctx, path, opts.Password)
	if err != nil {
		res.Errors = append(res.Errors, "Extraction failed: "+reason(err, common.ErrExtraction))
		p.logger.Error("pipeline.extract.failed", "file_path", path, "error", err)
		return res, err
	}
	res.Data = rec
	res.complete(constants.PhaseExtraction)

	anonymized := false
	if opts.Anonymize {
		anonymized, anonErr = p.runAnonymization(ctx, res)
	} else {
		p.logger.Debug("pipeline.anonymize.skipped", "file_path", path)
	}

	if opts.Restructure {
		restErr = p.runRestructuring(ctx, res, opts, anonymized)
	} else {
		p.logger.Debug("pipeline.restructure.skipped", "file_path", path)
	}
	return res, nil
}

func (p *Processor) extract(ctx context.Context, path, password string) (*document.Record, error) {
	if p.extractor == nil {
		return nil, fmt.Errorf("%w: no extractor configured", common.ErrExtraction)
	}
	rec, err := p.extractor.Extract(ctx, path, password)
	if err != nil {
		if !errors.Is(err, common.ErrExtraction) {
			err = fmt.Errorf("%w: %w", common.ErrExtraction, err)
		}
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: extractor returned no record", common.ErrExtraction)
	}
	return rec, nil
}

// runAnonymization replaces res.Data on success. Any failure keeps the
// extracted data.
func (p *Processor) runAnonymization(ctx context.Context, res *Result) (ok, failed bool) {
	if p.anonymizer == nil || !p.anonymizer.Available() {
		res.Warnings = append(res.Warnings, "Anonymization not available (NER model not loaded)")
		p.logger.Warn("pipeline.anonymize.unavailable", "file_path", res.FilePath)
		return false, false
	}
	out, err := p.anonymizer.Anonymize(ctx, res.Data)
	if err != nil {
		res.Errors = append(res.Errors, "Anonymization failed: "+reason(err, common.ErrAnonymization))
		res.Warnings = append(res.Warnings, "Continuing with non-anonymized data")
		p.logger.Error("pipeline.anonymize.failed", "file_path", res.FilePath, "error", err)
		return false, true
	}
	res.Data = out
	res.complete(constants.PhaseAnonymization)
	stats := p.anonymizer.Stats()
	p.logger.Info("pipeline.anonymize.ok",
		"file_path", res.FilePath,
		"total_entities", stats.TotalEntities,
		"total_mappings", stats.TotalMappings,
	)
	return true, false
}

// runRestructuring reports whether an error was recorded. A schema mismatch
// is a warning and leaves RestructuredData unset.
func (p *Processor) runRestructuring(ctx context.Context, res *Result, opts Options, anonymized bool) bool {
	if p.restructurer == nil {
		res.Warnings = append(res.Warnings, "LLM restructuring not available (no client configured)")
		return false
	}
	input := res.Data
	if anonymized && p.anonymizer != nil {
		input = p.anonymizer.Sanitize(input)
	}

	out, err := p.restructurer.Restructure(ctx, input, opts.MaxAttempts)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("LLM restructuring failed: %v", err))
		res.Warnings = append(res.Warnings, "Continuing without restructured data")
		p.logger.Error("pipeline.restructure.failed", "file_path", res.FilePath, "error", err)
		return true
	}
	if err := p.restructurer.Validate(out); err != nil {
		res.Warnings = append(res.Warnings, "LLM restructuring produced invalid data structure")
		p.logger.Warn("pipeline.restructure.invalid", "file_path", res.FilePath, "error", err)
		return false
	}
	res.RestructuredData = out
	res.complete(constants.PhaseRestructuring)
	p.logger.Info("pipeline.restructure.ok", "file_path", res.FilePath, "document_type", out["document_type"])
	return false
}

// reason drops the leading sentinel text so messages read "X failed: cause".
func reason(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

func (p *Processor) record(res *Result, anonErr, restErr bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.FilesProcessed++
	if !res.Completed(constants.PhaseExtraction) {
		p.stats.ExtractionErrors++
	}
	if anonErr {
		p.stats.AnonymizationErrors++
	}
	if restErr {
		p.stats.RestructuringErrors++
	}
	ts := p.now()
	p.stats.LastProcessed = &ts
}

// ProcessBatch processes paths in order and returns exactly len(paths)
// results. A document whose extraction fails yields a result with no
// completed phases; the batch continues.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string, opts Options) []*Result {
	p.logger.Info("pipeline.batch.start", "files", len(paths))
	results := make([]*Result, 0, len(paths))
	failed := 0
	for i, path := range paths {
		p.logger.Info("pipeline.batch.file", "index", i+1, "of", len(paths), "name", filepath.Base(path))
		res, err := p.ProcessDocument(ctx, path, opts)
		if err != nil {
			failed++
		}
		results = append(results, res)
	}
	p.logger.Info("pipeline.batch.done", "files", len(results), "failed", failed)
	return results
}

func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	if s.LastProcessed != nil {
		ts := *s.LastProcessed
		s.LastProcessed = &ts
	}
	return s
}

// ResetStats zeroes the counters and starts a new mapper session.
func (p *Processor) ResetStats() {
	p.mu.Lock()
	p.stats = Stats{}
	p.mu.Unlock()
	if p.anonymizer != nil {
		p.anonymizer.Reset()
	}
	p.logger.Info("pipeline.stats.reset")
}

type ExtractorStatus struct {
	Available        bool     `json:"available"`
	SupportedFormats []string `json:"supported_formats"`
}

type AnonymizerStatus struct {
	Available bool            `json:"available"`
	Model     string          `json:"model"`
	Stats     anonymize.Stats `json:"stats"`
}

type RestructurerStatus struct {
	Available bool   `json:"available"`
	Model     string `json:"model"`
}

// ServiceStatus describes every collaborator and the running counters.
type ServiceStatus struct {
	Extractor       ExtractorStatus    `json:"extractor"`
	Anonymizer      AnonymizerStatus   `json:"anonymizer"`
	Restructurer    RestructurerStatus `json:"restructurer"`
	ProcessingStats Stats              `json:"processing_stats"`
}

// ServiceStatus probes the restructurer, so it may block up to the probe
// timeout.
func (p *Processor) ServiceStatus(ctx context.Context) ServiceStatus {
	st := ServiceStatus{
		Extractor:       ExtractorStatus{SupportedFormats: []string{}},
		Anonymizer:      AnonymizerStatus{Stats: anonymize.Stats{EntityTypes: map[string]int{}}},
		ProcessingStats: p.Stats(),
	}
	if p.extractor != nil {
		st.Extractor = ExtractorStatus{Available: true, SupportedFormats: p.extractor.SupportedFormats()}
	}
	if p.anonymizer != nil {
		stats := p.anonymizer.Stats()
		st.Anonymizer = AnonymizerStatus{Available: p.anonymizer.Available(), Model: stats.NERModel, Stats: stats}
	}
	if p.restructurer != nil {
		st.Restructurer = RestructurerStatus{Available: p.restructurer.Available(ctx), Model: p.restructurer.Model()}
	}
	return st
}
