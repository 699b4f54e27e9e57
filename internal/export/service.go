package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
	"github.com/joseph-ayodele/vacation-distri/internal/llm"
)

// Revealer maps labels back to original text; nil mapping means the whole
// session.
type Revealer interface {
	ReverseResolve(text string, mapping document.Mapping) string
}

// Service renders restructured absence records as XLSX.
type Service struct {
	reveal Revealer
	logger *slog.Logger
}

// NewService exports labels as they are when reveal is nil.
func NewService(reveal Revealer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reveal: reveal, logger: logger}
}

const (
	absencesSheet = "Absences"
	summarySheet  = "Summary"
)

var absenceHeaders = []string{
	"Employee ID",
	"Employee Name",
	"Department",
	"Absence Type",
	"Start Date",
	"End Date",
	"Days",
	"Notes",
}

type employeeTotals struct {
	name                   string
	vacation, sick, others float64
}

// AbsenceWorkbook returns an XLSX workbook (as bytes) with one row per
// absence record and a per-employee summary. Records whose document_type is
// not absence_records fail with common.ErrInvalidInput.
func (s *Service) AbsenceWorkbook(restructured map[string]any) ([]byte, error) {
	start := time.Now()
	if restructured == nil {
		return nil, common.InvalidInputf("no restructured data")
	}
	if dt, _ := restructured["document_type"].(string); dt != llm.AbsenceRecordsType {
		return nil, common.InvalidInputf("document_type %q has no absence records", dt)
	}
	employees, _ := restructured["employees"].([]any)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), absencesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	writeRow(f, absencesSheet, 1, toAny(absenceHeaders)...)

	row := 2
	var totals []employeeTotals
	for _, e := range employees {
		emp, ok := e.(map[string]any)
		if !ok {
			continue
		}
		t := employeeTotals{name: s.text(emp["employee_name"])}
		if t.name == "" {
			t.name = s.text(emp["employee_id"])
		}
		records, _ := emp["absence_records"].([]any)
		for _, r := range records {
			rec, ok := r.(map[string]any)
			if !ok {
				continue
			}
			days, _ := number(rec["days"])
			typ := s.text(rec["absence_type"])
			switch typ {
			case "vacation":
				t.vacation += days
			case "sick_leave", "sick":
				t.sick += days
			default:
				t.others += days
			}
			writeRow(f, absencesSheet, row,
				s.text(emp["employee_id"]),
				s.text(emp["employee_name"]),
				s.text(emp["department"]),
				typ,
				s.text(rec["start_date"]),
				s.text(rec["end_date"]),
				days,
				s.text(rec["notes"]),
			)
			row++
		}
		totals = append(totals, t)
	}

	writeRow(f, summarySheet, 1, "Document Type", s.text(restructured["document_type"]))
	writeRow(f, summarySheet, 2, "Extraction Date", s.text(restructured["extraction_date"]))
	writeRow(f, summarySheet, 4, "Employee", "Vacation Days", "Sick Days", "Other Days", "Total Days")
	for i, t := range totals {
		writeRow(f, summarySheet, 5+i, t.name, t.vacation, t.sick, t.others, t.vacation+t.sick+t.others)
	}

	// Widen a few columns
	_ = f.SetColWidth(absencesSheet, "A", "B", 20)
	_ = f.SetColWidth(absencesSheet, "C", "D", 16)
	_ = f.SetColWidth(absencesSheet, "E", "F", 12)
	_ = f.SetColWidth(absencesSheet, "H", "H", 48)
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	_ = f.SetColWidth(summarySheet, "B", "E", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"employees", len(totals),
		"rows", row-2,
		"revealed", s.reveal != nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) text(v any) string {
	var out string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		out = t
	default:
		out = fmt.Sprint(t)
	}
	if s.reveal != nil {
		out = s.reveal.ReverseResolve(out, nil)
	}
	return out
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
