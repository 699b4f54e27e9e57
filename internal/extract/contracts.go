// Package extract turns PDF and spreadsheet files into document records.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/vacation-distri/constants"
	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
)

// Extractor reads one file into a structured record. Failures wrap
// common.ErrExtraction.
type Extractor interface {
	Extract(ctx context.Context, path, password string) (*document.Record, error)
}

// Service dispatches to the extractor registered for a file's format.
type Service struct {
	logger  *slog.Logger
	byKind  map[constants.FileFormat]Extractor
	formats []string
}

func NewService(logger *slog.Logger, pdf, excel Extractor) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger: logger,
		byKind: map[constants.FileFormat]Extractor{
			constants.FileFormatPDF:   pdf,
			constants.FileFormatExcel: excel,
		},
		formats: constants.SupportedExtensions(),
	}
}

// NewDefaultService wires the pdfcpu and excelize extractors.
func NewDefaultService(logger *slog.Logger) *Service {
	return NewService(logger, NewPDFExtractor(logger, nil), NewExcelExtractor(logger))
}

// SupportedFormats lists accepted extensions with a leading dot.
func (s *Service) SupportedFormats() []string { return s.formats }

func (s *Service) Extract(ctx context.Context, path, password string) (*document.Record, error) {
	start := time.Now()
	format, ok := constants.FormatForPath(path)
	if !ok {
		return nil, extractionError("unsupported file format: %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrExtraction, err)
	}
	ex := s.byKind[format]
	if ex == nil {
		return nil, extractionError("no extractor registered for %s", format)
	}

	rec, err := ex.Extract(ctx, path, password)
	if err != nil {
		s.logger.Error("extract.document.failed", "file_path", path, "format", format, "error", err)
		return nil, err
	}
	s.logger.Info("extract.document.ok",
		"file_path", path,
		"format", format,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func extractionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrExtraction, fmt.Sprintf(format, args...))
}
