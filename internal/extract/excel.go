package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
)

// ExcelExtractor reads every sheet of a workbook with excelize.
type ExcelExtractor struct {
	logger *slog.Logger
}

func NewExcelExtractor(logger *slog.Logger) *ExcelExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelExtractor{logger: logger}
}

func (e *ExcelExtractor) Extract(ctx context.Context, path, password string) (*document.Record, error) {
	f, err := excelize.OpenFile(path, excelize.Options{Password: password})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "password") {
			return nil, extractionError("workbook is encrypted and requires a valid password: %v", err)
		}
		return nil, fmt.Errorf("%w: open workbook: %w", common.ErrExtraction, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("extract.excel.close_error", "file_path", path, "error", err)
		}
	}()

	names := f.GetSheetList()
	content := &document.Excel{Sheets: make([]document.Sheet, 0, len(names))}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrExtraction, err)
		}
		rows, err := f.GetRows(name)
		if err != nil {
			e.logger.Warn("extract.excel.sheet_failed", "file_path", path, "sheet", name, "error", err)
			content.Stats.Errors++
			continue
		}
		sheet := buildSheet(name, rows)
		content.Sheets = append(content.Sheets, sheet)
		content.Stats.SheetsProcessed++
		content.Stats.RowsFound += sheet.NonEmptyRows
	}

	return &document.Record{
		FilePath: path,
		Metadata: map[string]any{
			"sheets_count": len(names),
			"sheet_names":  names,
		},
		Content: content,
	}, nil
}

// buildSheet keeps only rows with at least one non-blank cell. RowIndex is
// the position among the kept rows.
func buildSheet(name string, rows [][]string) document.Sheet {
	sheet := document.Sheet{
		SheetName: name,
		Content:   []document.Row{},
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	sheet.Dimensions = document.Dimensions{Rows: len(rows), Columns: cols}

	for _, r := range rows {
		var parts []string
		for _, c := range r {
			if c = strings.TrimSpace(c); c != "" {
				parts = append(parts, c)
			}
		}
		if len(parts) == 0 {
			continue
		}
		sheet.Content = append(sheet.Content, document.Row{
			RowIndex: len(sheet.Content),
			Cells:    append([]string(nil), r...),
			RawText:  strings.Join(parts, " | "),
		})
	}
	sheet.NonEmptyRows = len(sheet.Content)
	return sheet
}
