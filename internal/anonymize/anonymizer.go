package anonymize

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
)

// Anonymizer applies a Mapper to every text field of a document record.
type Anonymizer struct {
	mapper *Mapper
	logger *slog.Logger

	// serializes whole-document traversals over the shared session
	mu sync.Mutex
}

func New(mapper *Mapper, logger *slog.Logger) *Anonymizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Anonymizer{mapper: mapper, logger: logger}
}

func (a *Anonymizer) Available() bool {
	return a.mapper != nil && a.mapper.Available()
}

// Mapper exposes the session, e.g. for reversing labels in restructured output.
func (a *Anonymizer) Mapper() *Mapper { return a.mapper }

func (a *Anonymizer) Stats() Stats {
	if a.mapper == nil {
		return Stats{EntityTypes: map[string]int{}}
	}
	return a.mapper.Stats()
}

// Reset starts a new mapper session.
func (a *Anonymizer) Reset() {
	if a.mapper != nil {
		a.mapper.Reset()
	}
}

// Anonymize returns an anonymized deep copy of rec; rec is not modified.
// Each page, table and sheet of the copy carries the labels it introduced in
// AnonymizationMapping. Errors wrap common.ErrAnonymization.
func (a *Anonymizer) Anonymize(ctx context.Context, rec *document.Record) (*document.Record, error) {
	out := rec.Clone()
	if out == nil {
		return nil, fmt.Errorf("%w: nil record", common.ErrAnonymization)
	}
	if !a.Available() {
		out.Anonymization = &document.AnonymizationMetadata{Anonymized: false, EntityTypesFound: []string{}}
		a.logger.Warn("anonymize.document.unavailable", "file_path", rec.FilePath)
		return out, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	var err error
	switch c := out.Content.(type) {
	case *document.PDF:
		err = a.anonymizePDF(ctx, c)
	case *document.Excel:
		err = a.anonymizeExcel(ctx, c)
	default:
		err = fmt.Errorf("unsupported record kind %q", out.Kind())
	}
	if err != nil {
		a.logger.Error("anonymize.document.failed", "file_path", rec.FilePath, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrAnonymization, err)
	}

	stats := a.mapper.Stats()
	out.Anonymization = &document.AnonymizationMetadata{
		Anonymized:       true,
		NERModel:         stats.NERModel,
		TotalMappings:    stats.TotalMappings,
		EntityTypesFound: a.mapper.EntityTypes(),
	}
	a.logger.Info("anonymize.document.ok",
		"file_path", rec.FilePath,
		"kind", out.Kind(),
		"total_mappings", stats.TotalMappings,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (a *Anonymizer) anonymizePDF(ctx context.Context, c *document.PDF) error {
	for i := range c.Pages {
		page := &c.Pages[i]
		if page.TextContent != "" {
			text, local, err := a.mapper.Resolve(ctx, page.TextContent)
			if err != nil {
				return fmt.Errorf("page %d: %w", page.PageNumber, err)
			}
			page.TextContent = text
			page.AnonymizationMapping = local
		}
		for j := range page.Tables {
			table := &page.Tables[j]
			tableMapping := document.Mapping{}
			for _, row := range table.Data {
				for col, cell := range row {
					s, ok := cell.(string)
					if !ok {
						continue
					}
					text, local, err := a.mapper.Resolve(ctx, s)
					if err != nil {
						return fmt.Errorf("page %d table %d: %w", page.PageNumber, table.TableID, err)
					}
					row[col] = text
					maps.Copy(tableMapping, local)
				}
			}
			table.AnonymizationMapping = tableMapping
		}
	}
	return nil
}

func (a *Anonymizer) anonymizeExcel(ctx context.Context, c *document.Excel) error {
	for i := range c.Sheets {
		sheet := &c.Sheets[i]
		sheetMapping := document.Mapping{}
		for j := range sheet.Content {
			row := &sheet.Content[j]
			text, local, err := a.mapper.Resolve(ctx, row.RawText)
			if err != nil {
				return fmt.Errorf("sheet %q row %d: %w", sheet.SheetName, row.RowIndex, err)
			}
			row.RawText = text
			maps.Copy(sheetMapping, local)

			for k, cell := range row.Cells {
				text, local, err := a.mapper.Resolve(ctx, cell)
				if err != nil {
					return fmt.Errorf("sheet %q row %d cell %d: %w", sheet.SheetName, row.RowIndex, k, err)
				}
				row.Cells[k] = text
				maps.Copy(sheetMapping, local)
			}
		}
		sheet.AnonymizationMapping = sheetMapping
	}
	return nil
}

// Sanitize strips every AnonymizationMapping from a copy of rec.
func (a *Anonymizer) Sanitize(rec *document.Record) *document.Record {
	return Sanitize(rec)
}

// Sanitize returns a copy of rec without any AnonymizationMapping. Records
// must pass through here before they reach the restructuring client.
func Sanitize(rec *document.Record) *document.Record {
	out := rec.Clone()
	if out == nil {
		return nil
	}
	switch c := out.Content.(type) {
	case *document.PDF:
		for i := range c.Pages {
			c.Pages[i].AnonymizationMapping = nil
			for j := range c.Pages[i].Tables {
				c.Pages[i].Tables[j].AnonymizationMapping = nil
			}
		}
	case *document.Excel:
		for i := range c.Sheets {
			c.Sheets[i].AnonymizationMapping = nil
		}
	}
	return out
}
